package internal

import (
	"fmt"
	"time"

	"github.com/jinzhu/configor"
	log "github.com/sirupsen/logrus"
)

var Configuration = struct {
	Nostr   NostrConfiguration   `yaml:"nostr"`
	Cln     ClnConfiguration     `yaml:"cln"`
	Cursor  CursorConfiguration  `yaml:"cursor"`
	Publish PublishConfiguration `yaml:"publish"`
	Api     ApiConfiguration     `yaml:"api"`
}{}

type NostrConfiguration struct {
	// Operator secret key used to sign zap receipts, hex or nsec.
	PrivateKey string   `yaml:"private_key"`
	Relays     []string `yaml:"relays"`
}

type ClnConfiguration struct {
	// Path to the lightningd JSON-RPC unix socket (lightning-rpc).
	RpcPath string `yaml:"rpc_path"`
}

type CursorConfiguration struct {
	Path       string `yaml:"path"`
	StartIndex uint64 `yaml:"start_index"`
}

type PublishConfiguration struct {
	// Strict requires every relay to acknowledge before the cursor advances.
	Strict                bool   `yaml:"strict"`
	MaxRetries            uint64 `yaml:"max_retries"`
	InitialBackoffSeconds int64  `yaml:"initial_backoff_seconds"`
	RelayTimeoutSeconds   int64  `yaml:"relay_timeout_seconds"`
	RetryDelaySeconds     int64  `yaml:"retry_delay_seconds"`
	StuckThreshold        uint64 `yaml:"stuck_threshold"`
	Comment               string `yaml:"comment"`
}

func (p PublishConfiguration) InitialBackoff() time.Duration {
	return time.Duration(p.InitialBackoffSeconds) * time.Second
}

func (p PublishConfiguration) RelayTimeout() time.Duration {
	return time.Duration(p.RelayTimeoutSeconds) * time.Second
}

func (p PublishConfiguration) RetryDelay() time.Duration {
	return time.Duration(p.RetryDelaySeconds) * time.Second
}

type ApiConfiguration struct {
	// Host:port for the status server. Empty disables it.
	Host string `yaml:"host"`
}

func LoadConfiguration(path string) {
	err := configor.Load(&Configuration, path)
	if err != nil {
		panic(err)
	}
	checkConfiguration()
}

func checkConfiguration() {
	if Configuration.Nostr.PrivateKey == "" {
		panic(fmt.Errorf("please configure a nostr private key"))
	}
	if len(Configuration.Nostr.Relays) == 0 {
		panic(fmt.Errorf("please configure at least one nostr relay"))
	}
	if Configuration.Cln.RpcPath == "" {
		panic(fmt.Errorf("please configure the lightningd rpc socket path"))
	}
	if Configuration.Cursor.Path == "" {
		Configuration.Cursor.Path = "zapperd.cursor"
		log.Warnf("No cursor path configured, using %s", Configuration.Cursor.Path)
	}
	if Configuration.Publish.RelayTimeoutSeconds == 0 {
		Configuration.Publish.RelayTimeoutSeconds = 10
	}
	if Configuration.Publish.InitialBackoffSeconds == 0 {
		Configuration.Publish.InitialBackoffSeconds = 1
	}
	if Configuration.Publish.RetryDelaySeconds == 0 {
		Configuration.Publish.RetryDelaySeconds = 5
	}
	if Configuration.Publish.StuckThreshold == 0 {
		Configuration.Publish.StuckThreshold = 10
	}
}
