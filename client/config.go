package client

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
)

// Configuration keys understood by ConfigFromMap.
const (
	// KeySeeds holds the ordered list of coordinator hosts to ask for the
	// leader.
	KeySeeds = "nimbus.seeds"

	// KeyHost holds a single coordinator host.
	//
	// Deprecated: use KeySeeds. When set it takes priority over KeySeeds.
	KeyHost = "nimbus.host"

	// KeyPort holds the port every coordinator listens on.
	KeyPort = "nimbus.thrift.port"

	// KeyDoAsUser holds an identity that overrides the one passed by callers.
	KeyDoAsUser = "storm.doAsUser"

	// KeyTimeout holds the per-attempt timeout in milliseconds.
	KeyTimeout = "storm.thrift.socket.timeout.ms"
)

// ClusterConfig holds the parameters used to locate the coordinator leader.
type ClusterConfig struct {
	Seeds      []string      // Hosts to ask for the leader, in priority order.
	Port       int           // Port of every coordinator, including the leader.
	LegacyHost string        // Deprecated single host, replaces Seeds when set.
	DoAsUser   string        // Identity override, supersedes the caller's.
	Timeout    time.Duration // Per connection and per request timeout, 0 for none.
}

// ConfigFromMap builds a ClusterConfig from an already-parsed configuration
// mapping, such as the content of a storm.yaml file.
//
// Values decoded from YAML or JSON are accepted in their natural shapes: the
// seeds may be a list or a comma-separated string, the port and the timeout
// may be integers, integral floats or decimal strings.
func ConfigFromMap(conf map[string]interface{}) (ClusterConfig, error) {
	config := ClusterConfig{}

	if v, ok := conf[KeySeeds]; ok && v != nil {
		seeds, err := stringList(v)
		if err != nil {
			return config, configErrorf("%s: %v", KeySeeds, err)
		}
		config.Seeds = seeds
	}

	if v, ok := conf[KeyHost]; ok && v != nil {
		config.LegacyHost = fmt.Sprint(v)
	}

	if v, ok := conf[KeyPort]; ok && v != nil {
		port, err := integer(v)
		if err != nil {
			return config, configErrorf("%s: %v", KeyPort, err)
		}
		config.Port = int(port)
	}

	if v, ok := conf[KeyDoAsUser]; ok && v != nil {
		config.DoAsUser = fmt.Sprint(v)
	}

	if v, ok := conf[KeyTimeout]; ok && v != nil {
		ms, err := integer(v)
		if err != nil {
			return config, configErrorf("%s: %v", KeyTimeout, err)
		}
		if ms < 0 {
			return config, configErrorf("%s: negative timeout %d", KeyTimeout, ms)
		}
		if ms > math.MaxInt64/int64(time.Millisecond) {
			return config, configErrorf("%s: timeout %d out of range", KeyTimeout, ms)
		}
		config.Timeout = time.Duration(ms) * time.Millisecond
	}

	return config, nil
}

// ResolveSeeds returns the hosts that should be asked for the leader, in the
// order they should be tried.
//
// A non-blank LegacyHost is used as the only seed. Otherwise the configured
// seeds are returned in their configured order, skipping blank entries. An
// error is returned if no seed is configured.
func ResolveSeeds(config ClusterConfig) ([]string, error) {
	if host := strings.TrimSpace(config.LegacyHost); host != "" {
		return []string{host}, nil
	}

	seeds := make([]string, 0, len(config.Seeds))
	for _, seed := range config.Seeds {
		if seed = strings.TrimSpace(seed); seed != "" {
			seeds = append(seeds, seed)
		}
	}
	if len(seeds) == 0 {
		return nil, configErrorf("no seed hosts configured in %s", KeySeeds)
	}

	return seeds, nil
}

func validatePort(port int) error {
	if port <= 0 || port > math.MaxUint16 {
		return configErrorf("invalid or missing %s: %d", KeyPort, port)
	}
	return nil
}

// Return the effective identity and whether the configured override replaced
// a different identity given by the caller.
func resolveIdentity(config ClusterConfig, identity string) (string, bool) {
	if config.DoAsUser == "" {
		return identity, false
	}
	return config.DoAsUser, identity != "" && identity != config.DoAsUser
}

func stringList(v interface{}) ([]string, error) {
	switch v := v.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, nil
		}
		list := strings.Split(v, ",")
		for i := range list {
			list[i] = strings.TrimSpace(list[i])
		}
		return list, nil
	case []interface{}:
		list := make([]string, len(v))
		for i, item := range v {
			s, err := cast.ToStringE(item)
			if err != nil {
				return nil, errors.Wrapf(err, "item %d", i)
			}
			list[i] = s
		}
		return list, nil
	}
	return cast.ToStringSliceE(v)
}

// Convert v to an integer, rejecting booleans and fractional numbers which
// cast would otherwise turn into 1 or truncate.
func integer(v interface{}) (int64, error) {
	switch n := v.(type) {
	case bool:
		return 0, errors.Errorf("%v is not an integer", n)
	case float32:
		return integer(float64(n))
	case float64:
		if n != math.Trunc(n) || n >= math.MaxInt64 || n <= math.MinInt64 {
			return 0, errors.Errorf("%v is not an integer", n)
		}
	case string:
		v = strings.TrimSpace(n)
	}
	return cast.ToInt64E(v)
}
