package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/sahilchouksey/learnhub-api/config"
	"github.com/sahilchouksey/learnhub-api/database"
	"github.com/sahilchouksey/learnhub-api/services"
	"github.com/sahilchouksey/learnhub-api/utils/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "seed:", err)
		os.Exit(1)
	}
}

func run() error {
	fixturePath := flag.String("fixture", "", "YAML fixture with access levels, currencies and products")
	coursePath := flag.String("course", "", "course document (JSON with a module map) to import")
	flag.Parse()

	if err := config.LoadENV(); err != nil {
		return err
	}
	env, err := config.Get()
	if err != nil {
		return err
	}

	log, err := logger.New(env.GO_ENV)
	if err != nil {
		return err
	}
	defer log.Sync()

	store, err := database.StartGORM(env, log)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Init(); err != nil {
		return err
	}

	var fixture *database.Fixture
	if *fixturePath != "" {
		if fixture, err = database.LoadFixture(*fixturePath); err != nil {
			return err
		}
	}

	ctx := context.Background()
	if err := database.NewSeeder(store.DB(), log).SeedAll(ctx, fixture, env.ADMIN_EMAIL, env.ADMIN_PASSWORD); err != nil {
		return err
	}

	if *coursePath != "" {
		data, err := os.ReadFile(*coursePath)
		if err != nil {
			return fmt.Errorf("failed to read course document: %w", err)
		}
		course, err := services.NewCourseService(store.DB(), log, services.CourseServiceOptions{}).ImportDocument(ctx, data)
		if err != nil {
			return err
		}
		log.Info("course imported", "course_id", course.ID, "title", course.Title)
	}
	return nil
}
