package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dmitrijs2005/securefiles/internal/flagx"
)

var serverFlags = []string{"-a", "-d", "-m", "-t", "-u", "-p", "-b", "-g", "-e", "-w", "-y", "-l", "-o", "-z"}

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-m string   storage provider: s3, gateway, badger or memory
//	-t value    storage call timeout: a duration ("1500ms") or whole seconds
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-w string   gateway upload API URL
//	-y string   gateway download URL
//	-l string   badger data directory
//	-o string   log format: slog, zap or logrus
//	-z int      max upload size, bytes
//
// os.Args is filtered with flagx.FilterArgs first, so subcommand flags of
// the operator CLI are left alone. Flags that are not given leave the value
// from defaults, the config file or the environment untouched.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], serverFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.StorageProvider, "m", config.StorageProvider, "storage provider (s3|gateway|badger|memory)")
	fs.Func("t", "storage timeout (duration such as 1500ms, or seconds)", func(v string) error {
		d, err := parseTimeout(v)
		if err != nil {
			return err
		}
		config.StorageTimeout = d
		return nil
	})

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.GatewayUploadURL, "w", config.GatewayUploadURL, "gateway upload URL")
	fs.StringVar(&config.GatewayURL, "y", config.GatewayURL, "gateway download URL")
	fs.StringVar(&config.BadgerPath, "l", config.BadgerPath, "badger data directory")
	fs.StringVar(&config.LogFormat, "o", config.LogFormat, "log format (slog|zap|logrus)")
	fs.Int64Var(&config.MaxUploadSize, "z", config.MaxUploadSize, "max upload size (bytes)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}

// parseTimeout accepts a Go duration or a bare number of seconds.
func parseTimeout(v string) (time.Duration, error) {
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q", v)
	}
	return d, nil
}
