package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

var errNotLoggedIn = errors.New("not logged in; run: shplay login")

type credentials struct {
	Server   string `yaml:"server"`
	Username string `yaml:"username"`
	Token    string `yaml:"token"`
}

func credentialsFile() (string, error) {
	if credsPath != "" {
		return credsPath, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, "shplay", "credentials.yaml"), nil
}

func loadCredentials() (credentials, error) {
	path, err := credentialsFile()
	if err != nil {
		return credentials{}, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return credentials{}, errNotLoggedIn
	}
	if err != nil {
		return credentials{}, err
	}

	var c credentials
	if err := yaml.Unmarshal(data, &c); err != nil {
		return credentials{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if c.Token == "" {
		return c, errNotLoggedIn
	}
	return c, nil
}

func saveCredentials(c credentials) error {
	path, err := credentialsFile()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func removeCredentials() error {
	path, err := credentialsFile()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
