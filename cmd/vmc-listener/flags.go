package main

import (
	"flag"

	"github.com/banshee-data/vmc-listener/internal/config"
)

// options holds the command-line overrides. Only flags that were set on
// the command line replace config file values.
type options struct {
	configPath   string
	port         int
	bind         string
	framing      string
	bufferSize   int
	rcvBuf       int
	pollInterval string
	forwardAddr  string
	forwardPort  int
	record       bool
	dbPath       string
	httpListen   string
	diag         bool
	trace        bool
	showVersion  bool
}

func registerFlags(fs *flag.FlagSet) *options {
	o := &options{}
	fs.StringVar(&o.configPath, "config", "", "Path to a JSON config file")
	fs.IntVar(&o.port, "port", config.DefaultPort, "UDP port to listen on")
	fs.StringVar(&o.bind, "bind", config.DefaultBindAddress, "Address to bind the UDP socket to")
	fs.StringVar(&o.framing, "framing", config.DefaultFraming, "Datagram framing: vmc or osc")
	fs.IntVar(&o.bufferSize, "buffer-size", config.DefaultBufferSize, "Receive buffer size in bytes (larger datagrams are truncated)")
	fs.IntVar(&o.rcvBuf, "rcvbuf", 0, "Kernel socket receive buffer in bytes (0 keeps the OS default)")
	fs.StringVar(&o.pollInterval, "poll-interval", config.DefaultPollInterval.String(), "Interval between polls")
	fs.StringVar(&o.forwardAddr, "forward-addr", "", "Relay raw datagrams to this address")
	fs.IntVar(&o.forwardPort, "forward-port", 0, "Relay raw datagrams to this port (0 disables)")
	fs.BoolVar(&o.record, "record", false, "Record datagrams to the session database")
	fs.StringVar(&o.dbPath, "db", config.DefaultDBPath, "Session database path")
	fs.StringVar(&o.httpListen, "http", "", "HTTP listen address for the API (empty disables)")
	fs.BoolVar(&o.diag, "diag", false, "Log skipped messages and unknown type tags")
	fs.BoolVar(&o.trace, "trace", false, "Log every decoded datagram")
	fs.BoolVar(&o.showVersion, "version", false, "Print version and exit")
	return o
}

// apply copies every flag named in set onto cfg.
func (o *options) apply(cfg *config.ListenerConfig, set map[string]bool) {
	if set["port"] {
		cfg.Port = &o.port
	}
	if set["bind"] {
		cfg.BindAddress = &o.bind
	}
	if set["framing"] {
		cfg.Framing = &o.framing
	}
	if set["buffer-size"] {
		cfg.BufferSize = &o.bufferSize
	}
	if set["rcvbuf"] {
		cfg.RcvBuf = &o.rcvBuf
	}
	if set["poll-interval"] {
		cfg.PollInterval = &o.pollInterval
	}
	if set["forward-addr"] {
		cfg.ForwardAddress = &o.forwardAddr
	}
	if set["forward-port"] {
		cfg.ForwardPort = &o.forwardPort
	}
	if set["record"] {
		cfg.Record = &o.record
	}
	if set["db"] {
		cfg.DBPath = &o.dbPath
	}
	if set["http"] {
		cfg.HTTPListen = &o.httpListen
	}
}

// loadConfig reads the config file, if any, and layers the set flags on top.
func loadConfig(fs *flag.FlagSet, o *options) (*config.ListenerConfig, error) {
	cfg := &config.ListenerConfig{}
	if o.configPath != "" {
		var err error
		if cfg, err = config.Load(o.configPath); err != nil {
			return nil, err
		}
	}
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	o.apply(cfg, set)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
