package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/beyondbrewing/brewery-docstore/backend"
	"github.com/beyondbrewing/brewery-docstore/config"
	"github.com/beyondbrewing/brewery-docstore/pkg/logger"
	"github.com/beyondbrewing/brewery-docstore/store"
	"github.com/beyondbrewing/brewery-docstore/utils"
)

func main() {
	logger.SetDefault(logger.MustProduction())
	defer logger.SyncDefault()

	utils.ImportEnv()

	b, err := backend.Open(config.BREWERY_DATADIR, backend.WithLogger(logger.Default()))
	if err != nil {
		logger.Fatal("failed to open backend", "error", err)
	}
	defer b.Close()

	st, err := store.New(b, config.BREWERY_TABLE,
		store.WithChunkSize(config.BREWERY_CHUNKSIZE),
		store.WithLogger(logger.Default()),
	)
	if err != nil {
		logger.Fatal("failed to create store", "error", err)
	}

	if err := run(st, os.Args[1:]); err != nil {
		logger.Fatal("command failed", "error", err)
	}
}

func run(st *store.Store, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: docstore <get|set|delete|has|keys|clear> [key] [value]")
	}

	switch args[0] {
	case "get":
		if len(args) != 2 {
			return errors.New("usage: docstore get <key>")
		}
		v, ok := st.Get(args[1])
		if !ok {
			return fmt.Errorf("key %q not found", args[1])
		}
		out, err := json.Marshal(v)
		if err != nil {
			return err
		}
		fmt.Println(string(out))

	case "set":
		if len(args) != 3 {
			return errors.New("usage: docstore set <key> <value>")
		}
		// Values parse as JSON when possible and fall back to plain strings.
		var v any
		if err := json.Unmarshal([]byte(args[2]), &v); err != nil {
			v = args[2]
		}
		return st.Set(args[1], v)

	case "delete":
		if len(args) != 2 {
			return errors.New("usage: docstore delete <key>")
		}
		existed, err := st.Delete(args[1])
		if err != nil {
			return err
		}
		if !existed {
			return fmt.Errorf("key %q not found", args[1])
		}

	case "has":
		if len(args) != 2 {
			return errors.New("usage: docstore has <key>")
		}
		fmt.Println(st.Has(args[1]))

	case "keys":
		fmt.Println(strings.Join(st.Keys(), "\n"))

	case "clear":
		return st.Clear()

	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
	return nil
}
