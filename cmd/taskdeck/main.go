package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/nullix/taskdeck/internal/api"
	"github.com/nullix/taskdeck/internal/config"
	"github.com/nullix/taskdeck/internal/query"
	"github.com/nullix/taskdeck/internal/session"
	"github.com/nullix/taskdeck/internal/store"
	"github.com/nullix/taskdeck/internal/tasks"
	"github.com/nullix/taskdeck/internal/tui"
)

func main() {
	configPathFlag := flag.String("config", "", "config file path")
	apiFlag := flag.String("api", "", "task API base URL")
	statePathFlag := flag.String("state", "", "state db path")
	queryFlag := flag.String("query", "", "initial task query string, e.g. status=pending&page=2")
	flag.Parse()

	cfgPath, err := resolveConfigPath(*configPathFlag)
	if err != nil {
		log.Fatal(err)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatal(err)
	}

	if env := os.Getenv("TASKDECK_API"); env != "" {
		cfg.APIBase = strings.TrimRight(env, "/")
	}
	if *apiFlag != "" {
		cfg.APIBase = strings.TrimRight(*apiFlag, "/")
	}
	if *statePathFlag != "" {
		cfg.StatePath = *statePathFlag
	}
	if cfg.StatePath == "" {
		cfg.StatePath = filepath.Join(filepath.Dir(cfgPath), "state.db")
	}

	if err := config.Save(cfgPath, cfg); err != nil {
		log.Fatal(err)
	}

	st, err := openStore(cfg.StatePath)
	if err != nil {
		log.Fatal(err)
	}
	defer st.Close()

	sess := session.New(st)
	client := api.NewClient(cfg.APIBase, sess)

	initial := cfg.LastQuery
	if *queryFlag != "" {
		initial = *queryFlag
	}
	engine := tasks.NewEngine(client, query.ParseString(initial))
	engine.SetMirror(func(encoded string) {
		cfg.LastQuery = encoded
		_ = config.Save(cfgPath, cfg)
	})

	if err := tui.Run(sess, client, engine); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func resolveConfigPath(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	return config.DefaultConfigPath()
}

func openStore(statePath string) (*store.Store, error) {
	if err := config.EnsureDir(statePath); err != nil {
		return nil, err
	}
	return store.Open(statePath)
}
