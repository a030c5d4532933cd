package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"
	"golang.org/x/term"

	"github.com/vighneshparab/SkyWings-sub000/internal/auth"
	"github.com/vighneshparab/SkyWings-sub000/internal/models"
	"github.com/vighneshparab/SkyWings-sub000/internal/notify"
	"github.com/vighneshparab/SkyWings-sub000/internal/reports"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

// SeatReports is the read side of the reports repository.
type SeatReports interface {
	CourseSummaries(ctx context.Context) ([]reports.CourseSummary, error)
	Roster(ctx context.Context, courseID uuid.UUID) (*reports.Roster, error)
}

// PaymentLister lists payments by status.
type PaymentLister interface {
	List(ctx context.Context, status models.PaymentStatus, limit int) ([]models.Payment, error)
}

// UserCreator creates accounts.
type UserCreator interface {
	Create(ctx context.Context, email, passwordHash, fullName string, role models.Role) (*models.User, error)
}

type commandLine struct {
	out      io.Writer
	reports  SeatReports
	payments PaymentLister
	users    UserCreator
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  courses                                   - seat usage, waitlist length and revenue per course")
	fmt.Fprintln(cli.out, "  waitlist COURSE_ID                        - seated students and waitlist of a course")
	fmt.Fprintln(cli.out, "  payments [-status pending] [-limit 50]    - payments by status")
	fmt.Fprintln(cli.out, "  adduser -email EMAIL -name NAME [-role admin|instructor] - create a staff account; the password is prompted")
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	paymentsCmd := flag.NewFlagSet("payments", flag.ContinueOnError)
	paymentsCmd.SetOutput(cli.out)
	paymentsStatus := paymentsCmd.String("status", string(models.PaymentStatusPending), "pending, completed or failed")
	paymentsLimit := paymentsCmd.Int("limit", 50, "maximum rows")

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserCmd.SetOutput(cli.out)
	addUserEmail := addUserCmd.String("email", "", "login email")
	addUserName := addUserCmd.String("name", "", "full name")
	addUserRole := addUserCmd.String("role", string(models.RoleAdmin), "admin or instructor")

	switch args[1] {
	case "courses":
		return cli.courses(ctx)
	case "waitlist":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		courseID, err := uuid.Parse(args[2])
		if err != nil {
			return fmt.Errorf("invalid course id %q", args[2])
		}
		return cli.waitlist(ctx, courseID)
	case "payments":
		if err := paymentsCmd.Parse(args[2:]); err != nil {
			return err
		}
		status := models.PaymentStatus(*paymentsStatus)
		switch status {
		case models.PaymentStatusPending, models.PaymentStatusCompleted, models.PaymentStatusFailed:
		default:
			return fmt.Errorf("invalid status %q", *paymentsStatus)
		}
		return cli.listPayments(ctx, status, *paymentsLimit)
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserEmail == "" || *addUserName == "" {
			addUserCmd.Usage()
			return errHelp
		}
		role := models.Role(*addUserRole)
		if !role.IsStaff() {
			return fmt.Errorf("invalid role %q", *addUserRole)
		}
		fmt.Fprint(cli.out, "Enter password:")
		pwd, err := readPasswordFunc(int(syscall.Stdin))
		fmt.Fprintln(cli.out)
		if err != nil {
			return err
		}
		if len(pwd) < 8 {
			return errors.New("password must be at least 8 characters")
		}
		return cli.addUser(ctx, *addUserEmail, *addUserName, string(pwd), role)
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) table(header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(cli.out)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	return table
}

func (cli *commandLine) courses(ctx context.Context) error {
	list, err := cli.reports.CourseSummaries(ctx)
	if err != nil {
		return err
	}
	color.New(color.FgYellow).Fprintln(cli.out, "\nCourses")
	table := cli.table("ID", "Title", "Active", "Seats", "Left", "Waitlist", "Pending", "Revenue")
	for _, s := range list {
		table.Append([]string{
			s.CourseID.String(),
			s.Title,
			strconv.FormatBool(s.IsActive),
			fmt.Sprintf("%d/%d", s.EnrolledCount, s.MaxParticipants),
			strconv.Itoa(s.SeatsLeft),
			strconv.Itoa(s.Waitlisted),
			strconv.Itoa(s.Pending),
			notify.FormatAmount(s.RevenueCents, s.Currency),
		})
	}
	table.Render()
	return nil
}

func (cli *commandLine) waitlist(ctx context.Context, courseID uuid.UUID) error {
	roster, err := cli.reports.Roster(ctx, courseID)
	if err != nil {
		return err
	}
	color.New(color.FgYellow).Fprintf(cli.out, "\n%s (%d/%d seats)\n", roster.Course.Title, roster.Course.EnrolledCount, roster.Course.MaxParticipants)

	table := cli.table("#", "Student", "Email", "State")
	for i, s := range roster.Enrolled {
		table.Append([]string{strconv.Itoa(i + 1), s.FullName, s.Email, "enrolled"})
	}
	for _, s := range roster.Waitlist {
		table.Append([]string{strconv.Itoa(s.Position), s.FullName, s.Email, "waitlisted"})
	}
	table.Render()
	return nil
}

func (cli *commandLine) listPayments(ctx context.Context, status models.PaymentStatus, limit int) error {
	list, err := cli.payments.List(ctx, status, limit)
	if err != nil {
		return err
	}
	color.New(color.FgYellow).Fprintf(cli.out, "\nPayments (%s)\n", status)
	table := cli.table("ID", "Enrollment", "Session", "Amount", "Created")
	for _, p := range list {
		table.Append([]string{
			p.ID.String(),
			p.EnrollmentID.String(),
			p.TransactionID,
			notify.FormatAmount(p.AmountCents, p.Currency),
			p.CreatedAt.Format("2006-01-02 15:04"),
		})
	}
	table.Render()
	return nil
}

func (cli *commandLine) addUser(ctx context.Context, email, name, pwd string, role models.Role) error {
	hash, err := auth.HashPassword(pwd)
	if err != nil {
		return err
	}
	u, err := cli.users.Create(ctx, strings.ToLower(strings.TrimSpace(email)), hash, strings.TrimSpace(name), role)
	if err != nil {
		return err
	}
	color.New(color.FgGreen).Fprintf(cli.out, "created %s %s (%s)\n", u.Role, u.Email, u.ID)
	return nil
}
