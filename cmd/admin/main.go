// Package main provides back-office utilities for the bulletin board.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"time"

	"bboard/internal/bootstrap"
	"bboard/internal/config"
	"bboard/internal/events"
	"bboard/internal/models"
	"bboard/internal/notifications"
	"bboard/internal/repository"
	"bboard/internal/service"
	"bboard/internal/signing"

	"gopkg.in/yaml.v3"
)

const usage = `Usage:
  go run ./cmd/admin resend-activation [username...]   - Mail the activation link again
  go run ./cmd/admin nonactivated [activated|threedays|week] - List users by activation state
  go run ./cmd/admin activate <username>               - Activate an account without email
  go run ./cmd/admin deactivate <username>             - Block an account from logging in
  go run ./cmd/admin add-rubric [-parent id] [-order n] <name> - Create a rubric
  go run ./cmd/admin list-rubrics                      - Show the rubric tree
  go run ./cmd/admin delete-rubric <id>                - Delete an unused rubric`

type app struct {
	admin   *service.AdminService
	rubrics *service.RubricService
	out     io.Writer
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, _, err := bootstrap.InitRuntime(cfg, bootstrap.Options{SkipRedis: true})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	signer := signing.NewSigner(cfg.SecretKey, signing.DefaultSalt)
	dispatcher, err := notifications.NewDispatcher(notifications.NewMailer(cfg), signer, cfg.SiteHost)
	if err != nil {
		log.Fatalf("Failed to load mail templates: %v", err)
	}
	users := repository.NewUserRepository(db)
	a := &app{
		admin:   service.NewAdminService(users, events.NewBus(dispatcher)),
		rubrics: service.NewRubricService(repository.NewRubricRepository(db)),
		out:     os.Stdout,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := a.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		cancel()
		log.Fatalf("%s: %v", os.Args[1], err)
	}
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "resend-activation":
		// No usernames means every pending account.
		sent, err := a.admin.ResendActivation(ctx, args)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Activation letters sent: %d\n", sent)
		return nil

	case "nonactivated":
		filter := ""
		if len(args) > 0 {
			filter = args[0]
		}
		users, err := a.admin.NonActivated(ctx, filter)
		if err != nil {
			return err
		}
		return a.printYAML(userRows(users))

	case "activate", "deactivate":
		if len(args) != 1 {
			return fmt.Errorf("usage: %s <username>", command)
		}
		var user *models.User
		var err error
		if command == "activate" {
			user, err = a.admin.Activate(ctx, args[0])
		} else {
			user, err = a.admin.Deactivate(ctx, args[0])
		}
		if err != nil {
			return err
		}
		return a.printYAML(userRows([]models.User{*user}))

	case "add-rubric":
		return a.addRubric(ctx, args)

	case "list-rubrics":
		return a.listRubrics(ctx)

	case "delete-rubric":
		if len(args) != 1 {
			return errors.New("usage: delete-rubric <id>")
		}
		id, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid rubric id %q", args[0])
		}
		if err := a.rubrics.Delete(ctx, uint(id)); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Rubric %d deleted\n", id)
		return nil

	default:
		return fmt.Errorf("unknown command %q\n%s", command, usage)
	}
}

func (a *app) addRubric(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("add-rubric", flag.ContinueOnError)
	fs.SetOutput(a.out)
	parent := fs.Uint("parent", 0, "id of the top-level rubric to file the new one under")
	order := fs.Int("order", 0, "position in menus")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: add-rubric [-parent id] [-order n] <name>")
	}

	in := service.RubricInput{Name: fs.Arg(0), Order: int16(*order)}
	if *parent != 0 {
		id := uint(*parent)
		in.SuperRubricID = &id
	}
	rubric, err := a.rubrics.Create(ctx, in)
	if err != nil {
		return err
	}
	return a.printYAML(rubricRow(*rubric))
}

func (a *app) listRubrics(ctx context.Context) error {
	top, err := a.rubrics.TopLevel(ctx)
	if err != nil {
		return err
	}
	subs, err := a.rubrics.SubLevel(ctx)
	if err != nil {
		return err
	}
	tree := make([]rubricNode, 0, len(top))
	for _, t := range top {
		node := rubricNode{rubricYAML: rubricRow(t)}
		for _, s := range subs {
			if s.SuperRubricID != nil && *s.SuperRubricID == t.ID {
				node.Subs = append(node.Subs, rubricRow(s))
			}
		}
		tree = append(tree, node)
	}
	return a.printYAML(tree)
}

type userYAML struct {
	ID          uint      `yaml:"id"`
	Username    string    `yaml:"username"`
	Email       string    `yaml:"email"`
	IsActive    bool      `yaml:"is_active"`
	IsActivated bool      `yaml:"is_activated"`
	DateJoined  time.Time `yaml:"date_joined"`
}

func userRows(users []models.User) []userYAML {
	rows := make([]userYAML, 0, len(users))
	for _, u := range users {
		rows = append(rows, userYAML{
			ID:          u.ID,
			Username:    u.Username,
			Email:       u.Email,
			IsActive:    u.IsActive,
			IsActivated: u.IsActivated,
			DateJoined:  u.DateJoined,
		})
	}
	return rows
}

type rubricYAML struct {
	ID    uint   `yaml:"id"`
	Name  string `yaml:"name"`
	Order int16  `yaml:"order"`
}

type rubricNode struct {
	rubricYAML `yaml:",inline"`
	Subs       []rubricYAML `yaml:"sub_rubrics,omitempty"`
}

func rubricRow(r models.Rubric) rubricYAML {
	return rubricYAML{ID: r.ID, Name: r.Name, Order: r.Order}
}

func (a *app) printYAML(v any) error {
	enc := yaml.NewEncoder(a.out)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
