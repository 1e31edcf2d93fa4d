package main

import (
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/doggopher/dogvault/internal/database"
	"github.com/doggopher/dogvault/internal/identity"
	"github.com/doggopher/dogvault/internal/server"
	"github.com/doggopher/dogvault/pkg/dogapi"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/muesli/coral"
	"github.com/pkg/errors"
)

const dbname = "dogvault.db"

var (
	version  = "dev"
	revision = "none"
	date     = "unknown"

	cfg string
)

func main() {
	c := &coral.Command{
		Use:     "dogvault",
		Short:   "Token-authenticated gateway for saving dog images",
		Version: fmt.Sprintf("%s - build %.7s @ %s - %s", version, revision, date, runtime.Version()),
		Args:    coral.ExactArgs(0),
	}
	initCmd.Flags().StringVarP(&cfg, "config", "c", "", "Configuration file")
	c.AddCommand(initCmd)

	reindexCmd.Flags().StringVarP(&cfg, "config", "c", "", "Configuration file")
	c.AddCommand(reindexCmd)

	serverCmd.Flags().StringVarP(&cfg, "config", "c", "", "Configuration file")
	c.AddCommand(serverCmd)

	if err := c.Execute(); err != nil {
		log.Fatalf("%+v", err)
	}
}

func dbnameWithPath(path string) string {
	if len(path) == 0 {
		return dbname
	}
	return filepath.Join(path, dbname)
}

func load() (*koanf.Koanf, error) {
	konf := koanf.New(".")
	err := konf.Load(file.Provider(cfg), yaml.Parser())
	return konf, errors.Wrap(err, "could not load configuration")
}

func timeout(konf *koanf.Koanf, key string) time.Duration {
	if d := konf.Duration(key); d > 0 {
		return d
	}
	return 10 * time.Second
}

var (
	initCmd = &coral.Command{
		Use:   "init",
		Short: "Init the database",
		Args:  coral.ExactArgs(0),
		RunE: func(_ *coral.Command, _ []string) error {
			konf, err := load()
			if err != nil {
				return err
			}

			codec, err := database.StormCodecByName(konf.String("database_codec"))
			if err != nil {
				return err
			}

			return database.StormInit(dbnameWithPath(konf.String("database_path")), codec)
		},
	}

	//
	reindexCmd = &coral.Command{
		Use:   "reindex",
		Short: "Reindex the database",
		Args:  coral.ExactArgs(0),
		RunE: func(_ *coral.Command, _ []string) error {
			konf, err := load()
			if err != nil {
				return err
			}

			codec, err := database.StormCodecByName(konf.String("database_codec"))
			if err != nil {
				return err
			}

			return database.StormReIndex(dbnameWithPath(konf.String("database_path")), codec)
		},
	}

	//
	//
	serverCmd = &coral.Command{
		Use:   "server",
		Short: "Start server",
		Args:  coral.ExactArgs(0),
		RunE: func(_ *coral.Command, _ []string) error {
			konf, err := load()
			if err != nil {
				return err
			}

			for _, key := range []string{"identity.region", "identity.pool_id", "identity.client_id"} {
				if konf.String(key) == "" {
					return errors.Errorf("%s not found", key)
				}
			}

			issuer := konf.String("identity.issuer")
			if issuer == "" {
				issuer = identity.Issuer(konf.String("identity.region"), konf.String("identity.pool_id"))
			}

			endpoint := konf.String("identity.jwks_endpoint")
			if endpoint == "" {
				endpoint = identity.JWKSEndpoint(issuer)
			}

			resolver := identity.NewResolver(identity.ResolverParams{
				Endpoint: endpoint,
				Client:   &http.Client{Timeout: timeout(konf, "identity.http_timeout")},
				TTL:      konf.Duration("identity.jwks_ttl"),
			})
			verifier := identity.NewVerifier(identity.VerifierParams{
				Resolver: resolver,
				Issuer:   issuer,
				ClientID: konf.String("identity.client_id"),
			})

			upstream := konf.String("fetch.endpoint")
			if upstream == "" {
				upstream = dogapi.DefaultEndpoint
			}
			fetcher, err := dogapi.NewClient(&http.Client{Timeout: timeout(konf, "fetch.timeout")}, upstream)
			if err != nil {
				return errors.Wrap(err, "could not create upstream image client")
			}

			codec, err := database.StormCodecByName(konf.String("database_codec"))
			if err != nil {
				return err
			}

			db, err := database.StormOpenWithCodec(dbnameWithPath(konf.String("database_path")), codec)
			if err != nil {
				return errors.Wrap(err, "could not open database")
			}
			defer db.Close()

			engine := server.EchoEngine(server.Controller{
				Version:   version,
				Database:  db,
				Verifier:  verifier,
				Fetcher:   fetcher,
				ListLimit: konf.Int("list_limit"),
			})
			server.PrintRoutes(engine)

			address := konf.String("address")
			message := "could not run server"
			log.Printf("Server listening on %s\n", address)
			parts := strings.Split(address, ":")
			if len(parts) == 2 && parts[0] == "unix" {
				socketFile := parts[1]
				if _, err := os.Stat(socketFile); err == nil {
					log.Printf("Removing existing %s\n", socketFile)
					os.Remove(socketFile)
				}
				defer os.Remove(socketFile)
				listener, err := net.Listen(parts[0], socketFile)
				if err != nil {
					return err
				}
				return errors.Wrap(engine.Server.Serve(listener), message)
			}
			return errors.Wrap(engine.Start(address), message)
		},
	}
)
