package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/scene-engine/internal/content"
)

func main() {
	publish := flag.Bool("publish", false, "upsert valid scenes into the Postgres scene store")
	databaseURL := flag.String("database-url", os.Getenv("DATABASE_URL"), "Postgres DSN used by -publish")
	redisURL := flag.String("redis-url", os.Getenv("REDIS_URL"), "Redis address told about published scenes; skipped when empty")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [-publish] <content dir or scene file>...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	files, err := collectFiles(flag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read content: %v\n", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "No scene files found")
		os.Exit(1)
	}

	validator := NewSceneValidator()
	validator.Validate(files)
	report(os.Stdout, validator, len(files))

	if validator.HasErrors() {
		os.Exit(1)
	}

	if *publish {
		if *databaseURL == "" {
			fmt.Fprintln(os.Stderr, "-publish requires -database-url or DATABASE_URL")
			os.Exit(1)
		}
		if err := publishScenes(*databaseURL, *redisURL, validator, files); err != nil {
			fmt.Fprintf(os.Stderr, "Publish failed: %v\n", err)
			os.Exit(1)
		}
	}
}

func report(w io.Writer, v *SceneValidator, total int) {
	paths := make([]string, 0, len(v.errors)+len(v.warnings))
	for p := range v.errors {
		paths = append(paths, p)
	}
	for p := range v.warnings {
		if _, ok := v.errors[p]; !ok {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)

	for _, p := range paths {
		if errs := v.errors[p]; len(errs) > 0 {
			fmt.Fprintf(w, "%s: invalid\n%s\n", p, strings.Join(errs, "\n"))
		}
		if warns := v.warnings[p]; len(warns) > 0 {
			fmt.Fprintf(w, "%s: warnings\n%s\n", p, strings.Join(warns, "\n"))
		}
	}

	fmt.Fprintf(w, "%d of %d scene files are valid\n", total-len(v.errors), total)
}

func publishScenes(dsn, redisURL string, v *SceneValidator, files []sceneFile) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	store, err := content.NewPostgresSource(ctx, dsn)
	if err != nil {
		return err
	}
	defer func() {
		_ = store.Close() // Ignore error in defer
	}()

	valid := v.Valid(files)
	ids := make([]string, 0, len(valid))
	for id := range valid {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if err := store.Put(ctx, id, valid[id]); err != nil {
			return fmt.Errorf("failed to publish %s: %w", id, err)
		}
		fmt.Printf("Published %s\n", id)
	}

	if redisURL == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: redisURL})
	defer func() {
		_ = client.Close() // Ignore error in defer
	}()
	if err := content.PublishInvalidation(ctx, client, ids...); err != nil {
		return err
	}
	fmt.Printf("Invalidated %d cached scene(s)\n", len(ids))
	return nil
}
