package config

import "github.com/go-faster/errors"

func NonEmpty(value, envName string) error {
	if value == "" {
		return errors.Errorf("missing required env %s", envName)
	}
	return nil
}
