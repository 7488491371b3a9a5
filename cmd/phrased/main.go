/*
Phrased starts a phrasegen preview server and begins listening for requests.

Usage:

	phrased [flags]
	phrased [flags] -l [[ADDRESS]:PORT]

Once started, phrased listens for HTTP requests and responds to them using a
small JSON API under /api/v1. By default it listens on localhost:8080. This
can be changed with the --listen/-l flag (or the PHRASED_LISTEN_ADDRESS
environment variable). The flag argument must be either a full address with
port, such as "192.168.0.2:6001", or just the port preceeded by a colon, such
as ":6001".

If a JWT token secret is not given, one will be automatically generated. As a
consequence, in this mode of operation all tokens are rendered invalid as soon
as the server shuts down. This is suitable for testing, but must be given via
either CLI flags, environment variable, or config file if running in
production.

The flags are:

	-v, --version
		Give the current version of phrased and then exit.

	-l, --listen LISTEN_ADDRESS
		Listen on the given address. Must be in BIND_ADDRESS:PORT or :PORT
		format. If not given, will default to the value of environment
		variable PHRASED_LISTEN_ADDRESS, and if that is not given, will
		default to localhost:8080.

	-s, --secret TOKEN_SECRET
		Use the provided secret for signing JWT tokens. If there are less than
		32 bytes in the secret, it will be repeated until it is. The maximum
		size is 64 bytes. If not given, will default to the value of
		environment variable PHRASED_TOKEN_SECRET. If no secret is specified,
		a random secret is automatically generated and all tokens issued with
		it become invalid as soon as the server shuts down.

	--db DRIVER[:PARAMS]
		Use the given DB connection string. DRIVER must be one of the
		following: inmem, sqlite. inmem has no further params. sqlite needs
		the path to the data directory, such as sqlite:path/to/db_dir. If not
		given, will default to the value of environment variable
		PHRASED_DATABASE. If no DB driver is specified, an in-memory database
		is automatically selected.

	-c, --config FILE
		Load additional settings from a TOML config file. Flags and
		environment variables override values read from it.
*/
package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/dekarrin/phrasegen/internal/version"
	"github.com/dekarrin/phrasegen/server"
	"github.com/dekarrin/phrasegen/server/dao"
	"github.com/spf13/pflag"
)

const (
	EnvListen = "PHRASED_LISTEN_ADDRESS"
	EnvSecret = "PHRASED_TOKEN_SECRET"
	EnvDB     = "PHRASED_DATABASE"
)

var (
	flagVersion = pflag.BoolP("version", "v", false, "Give the current version of phrased and then exit.")
	flagListen  = pflag.StringP("listen", "l", "", "Listen on the given address.")
	flagSecret  = pflag.StringP("secret", "s", "", "Use the given secret for token generation.")
	flagDB      = pflag.String("db", "", "Use the given DB connection string.")
	flagConfig  = pflag.StringP("config", "c", "", "Load additional settings from a TOML config file.")
)

// fileConfig mirrors the flags/env vars that can also be set in a TOML
// config file, so the zero value of each field means "not set here".
type fileConfig struct {
	Listen string `toml:"listen"`
	Secret string `toml:"secret"`
	DB     string `toml:"db"`
}

func main() {
	pflag.Parse()

	if *flagVersion {
		fmt.Printf("%s (phrasegen v%s)\n", version.ServerCurrent, version.Current)
		return
	}

	args := pflag.Args()
	if len(args) > 0 {
		fmt.Fprintf(os.Stderr, "Too many arguments\nDo -h for help.\n")
		os.Exit(1)
	}

	var fileCfg fileConfig
	if *flagConfig != "" {
		if _, err := toml.DecodeFile(*flagConfig, &fileCfg); err != nil {
			fmt.Fprintf(os.Stderr, "Could not read config file: %s\n", err)
			os.Exit(1)
		}
	}

	listenAddr := firstSet(pflag.Lookup("listen").Changed, *flagListen, os.Getenv(EnvListen), fileCfg.Listen)
	addr, port, err := parseListenAddr(listenAddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\nDo -h for help.\n", err)
		os.Exit(1)
	}

	dbConnStr := firstSet(pflag.Lookup("db").Changed, *flagDB, os.Getenv(EnvDB), fileCfg.DB)
	var dbCfg server.Database
	if dbConnStr != "" {
		dbCfg, err = server.ParseDBConnString(dbConnStr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s\nDo -h for help.\n", err)
			os.Exit(1)
		}
	} else {
		dbCfg = server.Database{Type: server.DatabaseInMemory}
	}

	tokSecStr := firstSet(pflag.Lookup("secret").Changed, *flagSecret, os.Getenv(EnvSecret), fileCfg.Secret)
	tokSecret, err := resolveSecret(tokSecStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}

	cfg := server.Config{
		TokenSecret: tokSecret,
		DB:          dbCfg,
	}

	srv, err := server.New(cfg)
	if err != nil {
		log.Fatalf("FATAL could not start server: %s", err.Error())
	}
	log.Printf("DEBUG Server initialized")

	// immediately create the admin user so we have someone we can log in as.
	_, err = srv.CreateUser(context.Background(), "admin", "password", "", dao.Admin)
	if err != nil && !errors.Is(err, server.ErrAlreadyExists) {
		log.Printf("ERROR could not create initial admin user: %v", err)
		os.Exit(2)
	}
	if !errors.Is(err, server.ErrAlreadyExists) {
		log.Printf("INFO  Added initial admin user with password 'password'...")
	}

	log.Printf("INFO  Starting phrased %s...", version.ServerCurrent)
	srv.ServeForever(addr, port)
}

// firstSet returns flagVal if the flag was explicitly given on the command
// line, else the first of envVal/fileVal that is non-empty.
func firstSet(flagChanged bool, flagVal, envVal, fileVal string) string {
	if flagChanged {
		return flagVal
	}
	if envVal != "" {
		return envVal
	}
	return fileVal
}

func parseListenAddr(listenAddr string) (addr string, port int, err error) {
	if listenAddr == "" {
		return "", 0, nil
	}

	bindParts := strings.SplitN(listenAddr, ":", 2)
	if len(bindParts) != 2 {
		return "", 0, fmt.Errorf("listen address is not in ADDRESS:PORT or :PORT format")
	}

	port, err = strconv.Atoi(bindParts[1])
	if err != nil {
		return "", 0, fmt.Errorf("%q is not a valid port number", bindParts[1])
	}

	return bindParts[0], port, nil
}

func resolveSecret(tokSecStr string) ([]byte, error) {
	if tokSecStr == "" {
		tokSecret := make([]byte, 64)
		if _, err := rand.Read(tokSecret); err != nil {
			return nil, fmt.Errorf("could not generate token secret: %w", err)
		}
		log.Printf("WARN  Using generated token secret; all tokens issued will become invalid at shutdown")
		return tokSecret, nil
	}

	tokSecret := []byte(tokSecStr)
	for len(tokSecret) < server.MinSecretSize {
		doubled := make([]byte, len(tokSecret)*2)
		copy(doubled, tokSecret)
		copy(doubled[len(tokSecret):], tokSecret)
		tokSecret = doubled
	}
	if len(tokSecret) > server.MaxSecretSize {
		return nil, fmt.Errorf("token secret is %d bytes, but it must be <= %d bytes", len(tokSecret), server.MaxSecretSize)
	}

	return tokSecret, nil
}
