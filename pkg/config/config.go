package config

import (
	"fmt"
	"io/ioutil"
	"os"
	"os/user"
	"path"

	"gopkg.in/yaml.v2"
)

const (
	configDir  string = ".kmodver"
	configFile string = "config.yml"
)

// Config defines all configuration options available to be set through the config file.
type Config struct {
	// RecordSize overrides the size in bytes of one __versions record.
	// Needed only for kernels built with an unusual modversion_info
	// packing; when zero the standard 64-byte record is assumed.
	RecordSize int `yaml:"record-size,omitempty"`
	// CRCSize overrides the width in bytes of the CRC field. When zero
	// the width follows the module's ELF class (8 on 64-bit, 4 on
	// 32-bit).
	CRCSize int `yaml:"crc-size,omitempty"`

	// BackupSuffix is appended to the target file name when patching
	// with --keep. Defaults to ".patch".
	BackupSuffix string `yaml:"backup-suffix,omitempty"`

	// DefaultReference is a kernel module used as the reference for
	// cross-module patching when --reference is not given.
	DefaultReference string `yaml:"default-reference,omitempty"`
}

// LoadConfig attempts to populate a Config object from the config.yml file.
func LoadConfig() *Config {
	err := createConfigPath()
	if err != nil {
		fmt.Printf("Could not create config directory: %v.", err)
		return &Config{}
	}
	fullConfigFile, err := GetConfigFilePath(configFile)
	if err != nil {
		fmt.Printf("Unable to get config file path: %v.", err)
		return &Config{}
	}

	f, err := os.Open(fullConfigFile)
	if err != nil {
		f, err = createDefaultConfig(fullConfigFile)
		if err != nil {
			fmt.Printf("Error creating default config file: %v", err)
			return &Config{}
		}
	}
	defer func() {
		err := f.Close()
		if err != nil {
			fmt.Printf("Closing config file failed: %v.", err)
		}
	}()

	data, err := ioutil.ReadAll(f)
	if err != nil {
		fmt.Printf("Unable to read config data: %v.", err)
		return &Config{}
	}

	var c Config
	err = yaml.Unmarshal(data, &c)
	if err != nil {
		fmt.Printf("Unable to decode config file: %v.", err)
		return &Config{}
	}

	return &c
}

// SaveConfig will marshal and save the config struct
// to disk.
func SaveConfig(conf *Config) error {
	fullConfigFile, err := GetConfigFilePath(configFile)
	if err != nil {
		return err
	}

	out, err := yaml.Marshal(*conf)
	if err != nil {
		return err
	}

	f, err := os.Create(fullConfigFile)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(out)
	return err
}

func createDefaultConfig(path string) (*os.File, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("unable to create config file: %v", err)
	}
	err = writeDefaultConfig(f)
	if err != nil {
		return nil, fmt.Errorf("unable to write default configuration: %v", err)
	}
	return f, nil
}

func writeDefaultConfig(f *os.File) error {
	_, err := f.WriteString(
		`# Configuration file for kmodver.

# This is the default configuration file. Available options are provided, but disabled.
# Delete the leading hash mark to enable an item.

# Size in bytes of one __versions record. The kernel packs records into
# 64 bytes on every common architecture; override only for kernels built
# with a different modversion_info layout.
# record-size: 64

# Width in bytes of the CRC field at the start of each record. When
# unset it follows the module's ELF class: 8 bytes on 64-bit modules,
# 4 on 32-bit ones.
# crc-size: 8

# Suffix appended to the target file name when patching with --keep.
# backup-suffix: .patch

# Kernel module used as the reference for cross-module patching when
# --reference is not given on the command line.
# default-reference: /lib/modules/reference.ko
`)
	return err
}

// createConfigPath creates the directory structure at which all config files are saved.
func createConfigPath() error {
	path, err := GetConfigFilePath("")
	if err != nil {
		return err
	}
	return os.MkdirAll(path, 0700)
}

// GetConfigFilePath gets the full path to the given config file name.
func GetConfigFilePath(file string) (string, error) {
	userHomeDir := "."
	usr, err := user.Current()
	if err == nil {
		userHomeDir = usr.HomeDir
	}
	return path.Join(userHomeDir, configDir, file), nil
}
