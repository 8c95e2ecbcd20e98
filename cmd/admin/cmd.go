package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"

	"cantine/internal/dto"
	"cantine/internal/model"
	"cantine/internal/repository"
	"cantine/internal/service"
)

var errHelp = errors.New("help provided")

// cliPrincipal is recorded as the actor of admin commands.
var cliPrincipal = service.Principal{Username: "admin-cli", Role: model.RoleAdmin}

type commandLine struct {
	migrate      func() error
	users        service.UserService
	userRepo     repository.UserRepository
	plans        service.MealPlanService
	readPassword func() ([]byte, error)
	out          io.Writer
}

func readTerminalPassword() ([]byte, error) {
	return term.ReadPassword(int(os.Stdin.Fd()))
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate                                             apply pending database migrations")
	fmt.Fprintln(cli.out, "  adduser -username NAME -role ROLE [-establishment ID] [-email EMAIL]")
	fmt.Fprintln(cli.out, "                                                      create an account, password is prompted")
	fmt.Fprintln(cli.out, "  resetpassword -username NAME                        set a new password, prompted")
	fmt.Fprintln(cli.out, "  clearplans -yes                                     delete every meal plan")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	ctx := context.Background()

	switch args[1] {
	case "migrate":
		if err := cli.migrate(); err != nil {
			return err
		}
		fmt.Fprintln(cli.out, "migrations applied")
		return nil

	case "adduser":
		fs := flag.NewFlagSet("adduser", flag.ContinueOnError)
		fs.SetOutput(cli.out)
		username := fs.String("username", "", "login name")
		role := fs.String("role", "", "ADMIN, MANAGER, SCANNER, STUDENT or STAFF")
		establishment := fs.String("establishment", "", "establishment id, required for MANAGER and SCANNER")
		email := fs.String("email", "", "contact email")
		if err := fs.Parse(args[2:]); err != nil {
			return errHelp
		}
		r := strings.ToUpper(strings.TrimSpace(*role))
		if *username == "" || !model.ValidRole(r) {
			fs.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		return cli.addUser(ctx, &dto.CreateUserRequest{
			Username:        *username,
			Email:           *email,
			Password:        pwd,
			Role:            r,
			EstablishmentID: *establishment,
		})

	case "resetpassword":
		fs := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
		fs.SetOutput(cli.out)
		username := fs.String("username", "", "login name")
		if err := fs.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *username == "" {
			fs.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		return cli.resetPassword(ctx, *username, pwd)

	case "clearplans":
		fs := flag.NewFlagSet("clearplans", flag.ContinueOnError)
		fs.SetOutput(cli.out)
		yes := fs.Bool("yes", false, "confirm the deletion")
		if err := fs.Parse(args[2:]); err != nil {
			return errHelp
		}
		if !*yes {
			fmt.Fprintln(cli.out, "refusing to delete every meal plan without -yes")
			return errHelp
		}
		n, err := cli.plans.ClearAll(ctx, cliPrincipal)
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "%d meal plans deleted\n", n)
		return nil

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) promptPassword() (string, error) {
	fmt.Fprint(cli.out, "Enter password: ")
	pwd, err := cli.readPassword()
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	if len(pwd) < 8 || len(pwd) > 72 {
		return "", errors.New("password must be 8 to 72 characters")
	}
	return string(pwd), nil
}

func (cli *commandLine) addUser(ctx context.Context, req *dto.CreateUserRequest) error {
	user, err := cli.users.CreateUser(ctx, req, "")
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "user %s created (%s, id %s)\n", user.Username, user.Role, user.ID)
	return nil
}

func (cli *commandLine) resetPassword(ctx context.Context, username, pwd string) error {
	user, err := cli.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("find user %q: %w", username, err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := cli.userRepo.UpdatePassword(ctx, user.UserID, string(hash), false); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "password of %s updated\n", user.Username)
	return nil
}
