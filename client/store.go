package client

import (
	"io/ioutil"
	"os"

	"github.com/ghodss/yaml"
	"github.com/google/renameio"
	"github.com/pkg/errors"
)

// LoadConfigFile reads a YAML configuration file, such as storm.yaml, into a
// mapping suitable for ConfigFromMap. A missing file yields an empty mapping.
func LoadConfigFile(path string) (map[string]interface{}, error) {
	conf := map[string]interface{}{}

	data, err := ioutil.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return conf, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, &conf); err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	if conf == nil {
		conf = map[string]interface{}{}
	}

	return conf, nil
}

// LoadClusterConfig reads the cluster configuration from a YAML file.
func LoadClusterConfig(path string) (ClusterConfig, error) {
	conf, err := LoadConfigFile(path)
	if err != nil {
		return ClusterConfig{}, err
	}
	return ConfigFromMap(conf)
}

// SaveSeeds replaces the seed hosts in the given YAML configuration file,
// keeping every other key. The deprecated single host key is removed so that
// the new seeds take effect. The file is replaced atomically.
func SaveSeeds(path string, seeds []string) error {
	conf, err := LoadConfigFile(path)
	if err != nil {
		return err
	}

	delete(conf, KeyHost)
	conf[KeySeeds] = seeds

	data, err := yaml.Marshal(conf)
	if err != nil {
		return err
	}

	if err := renameio.WriteFile(path, data, 0600); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}

	return nil
}
