package main

import (
	"encoding/json"
	"fmt"
	"github.com/mitchellh/mapstructure"
	"os"
	"time"
)

type Config struct {
	Addr               string        `mapstructure:"addr"`
	Root               string        `mapstructure:"root"`
	Host               string        `mapstructure:"host"`
	CertFile           string        `mapstructure:"cert_file"`
	KeyFile            string        `mapstructure:"key_file"`
	CloseNotifyTimeout time.Duration `mapstructure:"close_notify_timeout"`
	QuickAck           bool          `mapstructure:"quick_ack"`
}

func defaultConfig() map[string]any {
	return map[string]any{
		"addr":                 "127.0.0.1:8443",
		"root":                 ".",
		"host":                 "localhost",
		"close_notify_timeout": "5s",
	}
}

// LoadConfig merges defaults, the JSON file at path and overrides, later ones win.
func LoadConfig(path string, overrides map[string]any) (config Config, err error) {
	raw := defaultConfig()
	if path != "" {
		b, readErr := os.ReadFile(path)
		if readErr != nil {
			err = fmt.Errorf("https-server: read config: %w", readErr)
			return
		}
		file := make(map[string]any)
		if err = json.Unmarshal(b, &file); err != nil {
			err = fmt.Errorf("https-server: parse config: %w", err)
			return
		}
		for k, v := range file {
			raw[k] = v
		}
	}
	for k, v := range overrides {
		raw[k] = v
	}
	decoder, decoderErr := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           &config,
	})
	if decoderErr != nil {
		err = decoderErr
		return
	}
	if err = decoder.Decode(raw); err != nil {
		err = fmt.Errorf("https-server: mapstructure: %s", err.Error())
		return
	}
	if (config.CertFile == "") != (config.KeyFile == "") {
		err = fmt.Errorf("https-server: cert_file and key_file must be set together")
		return
	}
	return
}
