// Package adminctl implements the contactsctl administration commands:
// creating an administrator and changing the role of an existing user
// directly against the database.
package adminctl

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/mail"

	"github.com/dmitrijs2005/contactsapi/internal/common"
	"github.com/dmitrijs2005/contactsapi/internal/flagx"
	"github.com/dmitrijs2005/contactsapi/internal/server/models"
)

const (
	minPasswordLen = 6
	maxPasswordLen = 50
)

// ErrUsage is returned when the command line cannot be understood.
var ErrUsage = errors.New("usage error")

// Users is the part of the user service the commands need.
type Users interface {
	CreateAdmin(ctx context.Context, userName, email, password string) (*models.User, error)
	SetRoleByEmail(ctx context.Context, email, role string) (*models.User, error)
}

// App runs one command per invocation.
type App struct {
	users  Users
	reader *bufio.Reader
	out    io.Writer
}

func NewApp(users Users, in io.Reader, out io.Writer) *App {
	return &App{users: users, reader: bufio.NewReader(in), out: out}
}

const usage = `Usage:
  contactsctl create-admin -email <email> [-username <name>]
  contactsctl set-role -email <email> -role <user|admin>`

// Run dispatches args[0] to its command.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(a.out, usage)
		return ErrUsage
	}

	cmd, rest := args[0], args[1:]

	switch cmd {
	case "create-admin":
		return a.createAdmin(ctx, rest)
	case "set-role":
		return a.setRole(ctx, rest)
	case "help", "-h", "--help":
		fmt.Fprintln(a.out, usage)
		return nil
	default:
		fmt.Fprintln(a.out, "Unknown command:", cmd)
		fmt.Fprintln(a.out, usage)
		return ErrUsage
	}
}

func (a *App) createAdmin(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create-admin", flag.ContinueOnError)
	fs.SetOutput(a.out)
	email := fs.String("email", "", "administrator email")
	userName := fs.String("username", "", "administrator display name")
	if err := fs.Parse(flagx.FilterArgs(args, []string{"-email", "-username"})); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}

	if _, err := mail.ParseAddress(*email); err != nil || *email == "" {
		return fmt.Errorf("%w: -email must be a valid address", ErrUsage)
	}

	name := *userName
	if name == "" {
		var err error
		name, err = GetSimpleText(a.reader, "Username", a.out)
		if err != nil {
			return err
		}
	}
	if len(name) < 3 || len(name) > 50 {
		return fmt.Errorf("%w: username must be 3 to 50 characters", ErrUsage)
	}

	pw, err := a.readNewPassword()
	if err != nil {
		return err
	}
	defer wipe(pw)

	user, err := a.users.CreateAdmin(ctx, name, *email, string(pw))
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return fmt.Errorf("email %s is already registered", *email)
		}
		return err
	}

	fmt.Fprintf(a.out, "Administrator %s created (id %d)\n", user.Email, user.ID)
	return nil
}

func (a *App) readNewPassword() ([]byte, error) {
	pw, err := GetPassword("Enter password", a.out)
	if err != nil {
		return nil, err
	}
	if len(pw) < minPasswordLen || len(pw) > maxPasswordLen {
		wipe(pw)
		return nil, fmt.Errorf("%w: password must be %d to %d characters", ErrUsage, minPasswordLen, maxPasswordLen)
	}

	confirm, err := GetPassword("Repeat password", a.out)
	if err != nil {
		wipe(pw)
		return nil, err
	}
	defer wipe(confirm)

	if !bytes.Equal(pw, confirm) {
		wipe(pw)
		return nil, errors.New("passwords do not match")
	}
	return pw, nil
}

func (a *App) setRole(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("set-role", flag.ContinueOnError)
	fs.SetOutput(a.out)
	email := fs.String("email", "", "user email")
	role := fs.String("role", "", "new role")
	if err := fs.Parse(flagx.FilterArgs(args, []string{"-email", "-role"})); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if *email == "" || *role == "" {
		return fmt.Errorf("%w: -email and -role are required", ErrUsage)
	}

	user, err := a.users.SetRoleByEmail(ctx, *email, *role)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrorNotFound):
			return fmt.Errorf("user %s not found", *email)
		case errors.Is(err, common.ErrInvalidRole):
			return fmt.Errorf("invalid role %q, valid roles are: %v", *role, models.ValidRoles())
		}
		return err
	}

	fmt.Fprintf(a.out, "User %s now has role %s\n", user.Email, user.Role)
	return nil
}
