package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

type StructuredJSONConfig struct {
	Storage struct {
		DB struct {
			DSN string `json:"dsn"`
		} `json:"db,omitempty"`
	} `json:"storage,omitempty"`

	Remote struct {
		BaseURL        string   `json:"base_url"`
		RequestTimeout Duration `json:"request_timeout"`
	} `json:"remote,omitempty"`

	Sync struct {
		Interval        Duration `json:"interval"`
		BatchSize       int      `json:"batch_size"`
		MaxRetries      int      `json:"max_retries"`
		InFlightTimeout Duration `json:"in_flight_timeout"`
	} `json:"sync,omitempty"`

	Monitor struct {
		ProbeInterval    Duration `json:"probe_interval"`
		FailureThreshold int      `json:"failure_threshold"`
	} `json:"monitor,omitempty"`

	Resolver struct {
		UserEditableFields    []string `json:"user_editable_fields"`
		CriticalNumericFields []string `json:"critical_numeric_fields"`
	} `json:"resolver,omitempty"`

	Admin struct {
		HTTPAddress string `json:"address"`
	} `json:"admin,omitempty"`
}

func parseJSON(jsonFilePath string) (*StructuredConfig, error) {
	jsonFile, err := os.Open(jsonFilePath)
	if err != nil {
		return nil, fmt.Errorf("error reading a json file: %w", err)
	}
	defer jsonFile.Close()

	var jsonCfg StructuredJSONConfig
	if err := json.NewDecoder(jsonFile).Decode(&jsonCfg); err != nil {
		return nil, fmt.Errorf("error decoding json configs: %w", err)
	}

	cfg := &StructuredConfig{
		Storage: Storage{
			DB: DB{DSN: jsonCfg.Storage.DB.DSN},
		},
		Remote: Remote{
			BaseURL:        jsonCfg.Remote.BaseURL,
			RequestTimeout: time.Duration(jsonCfg.Remote.RequestTimeout),
		},
		Sync: Sync{
			Interval:        time.Duration(jsonCfg.Sync.Interval),
			BatchSize:       jsonCfg.Sync.BatchSize,
			MaxRetries:      jsonCfg.Sync.MaxRetries,
			InFlightTimeout: time.Duration(jsonCfg.Sync.InFlightTimeout),
		},
		Monitor: Monitor{
			ProbeInterval:    time.Duration(jsonCfg.Monitor.ProbeInterval),
			FailureThreshold: jsonCfg.Monitor.FailureThreshold,
		},
		Resolver: Resolver{
			UserEditableFields:    jsonCfg.Resolver.UserEditableFields,
			CriticalNumericFields: jsonCfg.Resolver.CriticalNumericFields,
		},
		Admin: Admin{
			HTTPAddress: jsonCfg.Admin.HTTPAddress,
		},
		JSONFilePath: "",
	}

	return cfg, nil
}

// Duration is a wrapper around time.Duration that supports JSON unmarshaling from strings like "1h", "30s"
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		tmp, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		*d = Duration(tmp)
		return nil
	default:
		return json.Unmarshal(b, (*time.Duration)(d))
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}
