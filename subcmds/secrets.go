// Copyright (c) 2025 madmickstar

package subcmds

import (
	"encoding/json"
	"fmt"
	"os"
)

// Secrets holds the exchange credentials and the optional messaging
// configuration, loaded from a JSON file in the data directory.
type Secrets struct {
	Poloniex struct {
		Key    string `json:"key"`
		Secret string `json:"secret"`
	} `json:"poloniex"`

	Telegram struct {
		BotToken string `json:"bot_token"`
		ChatID   int64  `json:"chat_id"`
	} `json:"telegram"`
}

func (s *Secrets) Check() error {
	if s.Poloniex.Key == "" || s.Poloniex.Secret == "" {
		return fmt.Errorf("secrets file has no poloniex api key/secret")
	}
	return nil
}

func SecretsFromFile(fpath string) (*Secrets, error) {
	data, err := os.ReadFile(fpath)
	if err != nil {
		return nil, err
	}
	s := new(Secrets)
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("could not unmarshal secrets file %q: %w", fpath, err)
	}
	return s, nil
}
