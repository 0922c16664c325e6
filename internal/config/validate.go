package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validatePreprocess(); err != nil {
		return err
	}
	if err := c.validateTraining(); err != nil {
		return err
	}
	if err := c.validateEvaluate(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.DataRoot == "" {
		return fmt.Errorf("paths.data_root is required. Set %s or edit the config file (create with 'cxr config init')", EnvDataRoot)
	}
	if c.Paths.ImageRoot == "" {
		return fmt.Errorf("paths.image_root is required. Set %s or edit the config file", EnvImageRoot)
	}
	if c.Paths.ArrayRoot == "" {
		return fmt.Errorf("paths.array_root is required. Set %s or edit the config file", EnvArrayRoot)
	}
	return nil
}

func (c *Config) validatePreprocess() error {
	if c.Preprocess.ImageSize < 16 || c.Preprocess.ImageSize > 2048 {
		return errors.New("preprocess.image_size must be between 16 and 2048")
	}
	return nil
}

func (c *Config) validateTraining() error {
	switch c.Training.Model {
	case "inception", "smallcnn":
	default:
		return fmt.Errorf("training.model: unsupported value %q (expected inception or smallcnn)", c.Training.Model)
	}
	switch c.Training.Monitor {
	case "accuracy", "loss":
	default:
		return fmt.Errorf("training.monitor: unsupported value %q (expected accuracy or loss)", c.Training.Monitor)
	}
	return nil
}

func (c *Config) validateEvaluate() error {
	for _, t := range c.Evaluate.Thresholds {
		if t <= 0 || t >= 1 {
			return fmt.Errorf("evaluate.thresholds: %v is outside (0, 1)", t)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
