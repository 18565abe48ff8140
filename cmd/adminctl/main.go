// Command adminctl is the operator CLI for the cabin-rental admin API.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cabanalodge/adminctl/internal/api"
	"github.com/cabanalodge/adminctl/internal/config"
	"github.com/cabanalodge/adminctl/internal/errs"
	"github.com/cabanalodge/adminctl/internal/model"
	"github.com/cabanalodge/adminctl/internal/session"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// ---- utils ----

func readAll(p string) ([]byte, error) {
	if p == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(p)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func fail(err error) {
	switch {
	case errors.Is(err, errs.ErrUnauthorized):
		fmt.Fprintln(os.Stderr, "not signed in (or the session expired); run 'adminctl login'")
	case errors.Is(err, errs.ErrUnavailable):
		fmt.Fprintln(os.Stderr, "cannot reach the server, check your connection")
	case errors.Is(err, errs.ErrTimeout):
		fmt.Fprintln(os.Stderr, "the request timed out, try again")
	default:
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(1)
}

func newLogger(level string) *zap.Logger {
	lvl := zapcore.InfoLevel
	_ = lvl.Set(strings.ToLower(level))
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func usage() {
	fmt.Fprintf(os.Stderr, `adminctl
Usage:
  adminctl [-api URL] <cmd> [args]

Session:
  login          -email <email> -password <password>
  register       -name <name> -email <email> -password <password>
  logout
  whoami

Cabins:
  cabins
  cabin          -id <id>
  cabin-create   -file <json|'-'>
  cabin-update   -id <id> -file <json|'-'>
  cabin-rm       -id <id>
  cabin-image    -id <id> -url <imageURL> [-main]
  cabin-upload   -id <id> -file <image> [-file <image> ...]

Bookings:
  bookings
  booking        -id <id>
  booking-payments -id <id>
  booking-create -file <json|'-'>
  booking-status -id <id> -status <Confirmada|Pendiente|Cancelada>

Other:
  amenities
  console        interactive mode
  version
`)
	os.Exit(2)
}

// ---- main ----

// main wires config, the persisted cookie jar, the session store, and the
// typed client, then dispatches subcommands.
func main() {
	apiURL := flag.String("api", "", "API base URL (overrides profile/env)")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
	}
	cmd := flag.Arg(0)

	if cmd == "version" {
		fmt.Printf("adminctl %s (%s)\n", version, buildDate)
		return
	}

	if *apiURL != "" {
		os.Setenv("ADMINCTL_API_URL", *apiURL)
	}
	cfg, err := config.Load(context.Background())
	if err != nil {
		fail(err)
	}

	logger := newLogger(cfg.LogLevel)
	defer func() { _ = logger.Sync() }()

	jar, err := openFileJar(filepath.Join(config.Dir(), "cookies.json"))
	if err != nil {
		fail(fmt.Errorf("open cookie store: %w", err))
	}

	store, err := session.New(session.Options{
		BaseURL:      cfg.APIURL,
		LoginTimeout: cfg.LoginTimeout,
		Logger:       logger,
		Jar:          jar,
		Navigator: session.NavigatorFunc(func() {
			fmt.Fprintln(os.Stderr, "signed out")
		}),
	})
	if err != nil {
		fail(err)
	}
	client := api.New(store, logger)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	defer cancel()

	switch cmd {

	case "login":
		fs := flag.NewFlagSet("login", flag.ExitOnError)
		email := fs.String("email", "", "account email")
		password := fs.String("password", "", "account password")
		_ = fs.Parse(flag.Args()[1:])

		out := store.Login(ctx, *email, *password)
		if !out.Success {
			fail(errors.New(out.Message))
		}
		fmt.Printf("signed in as %s (%s)\n", out.Identity.Name, out.Identity.Role)

	case "register":
		fs := flag.NewFlagSet("register", flag.ExitOnError)
		name := fs.String("name", "", "display name")
		email := fs.String("email", "", "account email")
		password := fs.String("password", "", "account password")
		_ = fs.Parse(flag.Args()[1:])

		out := store.Register(ctx, *name, *email, *password)
		if !out.Success {
			fail(errors.New(out.Message))
		}
		fmt.Printf("registered and signed in as %s\n", out.Identity.Name)

	case "logout":
		store.Logout(ctx)

	case "whoami":
		store.Resolve(ctx)
		id := store.Identity()
		if id == nil {
			fail(errors.New("not signed in"))
		}
		printJSON(id)

	case "cabins":
		cabins, err := client.Cabins(ctx)
		if err != nil {
			fail(err)
		}
		printJSON(cabins)

	case "cabin":
		fs := flag.NewFlagSet("cabin", flag.ExitOnError)
		id := fs.Int64("id", 0, "cabin id")
		_ = fs.Parse(flag.Args()[1:])
		if *id <= 0 {
			fail(errors.New("need -id"))
		}
		cabin, err := client.Cabin(ctx, *id)
		if err != nil {
			fail(err)
		}
		printJSON(cabin)

	case "cabin-create":
		fs := flag.NewFlagSet("cabin-create", flag.ExitOnError)
		file := fs.String("file", "", "cabin JSON ('-'=stdin)")
		_ = fs.Parse(flag.Args()[1:])
		if *file == "" {
			fail(errors.New("need -file"))
		}
		form, err := readForm[model.CabinForm](*file)
		if err != nil {
			fail(err)
		}
		cabin, err := client.CreateCabin(ctx, form)
		if err != nil {
			fail(err)
		}
		printJSON(cabin)

	case "cabin-update":
		fs := flag.NewFlagSet("cabin-update", flag.ExitOnError)
		id := fs.Int64("id", 0, "cabin id")
		file := fs.String("file", "", "cabin JSON ('-'=stdin)")
		_ = fs.Parse(flag.Args()[1:])
		if *id <= 0 || *file == "" {
			fail(errors.New("need -id and -file"))
		}
		form, err := readForm[model.CabinForm](*file)
		if err != nil {
			fail(err)
		}
		cabin, err := client.UpdateCabin(ctx, *id, form)
		if err != nil {
			fail(err)
		}
		printJSON(cabin)

	case "cabin-rm":
		fs := flag.NewFlagSet("cabin-rm", flag.ExitOnError)
		id := fs.Int64("id", 0, "cabin id")
		_ = fs.Parse(flag.Args()[1:])
		if *id <= 0 {
			fail(errors.New("need -id"))
		}
		if err := client.DeleteCabin(ctx, *id); err != nil {
			fail(err)
		}
		fmt.Println("ok")

	case "cabin-image":
		fs := flag.NewFlagSet("cabin-image", flag.ExitOnError)
		id := fs.Int64("id", 0, "cabin id")
		imageURL := fs.String("url", "", "image URL")
		isMain := fs.Bool("main", false, "set as main image")
		_ = fs.Parse(flag.Args()[1:])
		if *id <= 0 || *imageURL == "" {
			fail(errors.New("need -id and -url"))
		}
		img, err := client.AddCabinImageURL(ctx, *id, *imageURL, *isMain)
		if err != nil {
			fail(err)
		}
		printJSON(img)

	case "cabin-upload":
		fs := flag.NewFlagSet("cabin-upload", flag.ExitOnError)
		id := fs.Int64("id", 0, "cabin id")
		var paths stringList
		fs.Var(&paths, "file", "image file (repeatable)")
		_ = fs.Parse(flag.Args()[1:])
		if *id <= 0 || len(paths) == 0 {
			fail(errors.New("need -id and at least one -file"))
		}
		var uploads []api.Upload
		for _, p := range paths {
			f, err := os.Open(p)
			if err != nil {
				fail(err)
			}
			defer f.Close()
			uploads = append(uploads, api.Upload{Name: filepath.Base(p), Reader: f})
		}
		imgs, err := client.UploadCabinImages(ctx, *id, uploads)
		if err != nil {
			fail(err)
		}
		printJSON(imgs)

	case "amenities":
		amenities, err := client.Amenities(ctx)
		if err != nil {
			fail(err)
		}
		printJSON(amenities)

	case "bookings":
		bookings, err := client.Bookings(ctx)
		if err != nil {
			fail(err)
		}
		printJSON(bookings)

	case "booking":
		fs := flag.NewFlagSet("booking", flag.ExitOnError)
		id := fs.Int64("id", 0, "booking id")
		_ = fs.Parse(flag.Args()[1:])
		if *id <= 0 {
			fail(errors.New("need -id"))
		}
		booking, err := client.Booking(ctx, *id)
		if err != nil {
			fail(err)
		}
		printJSON(booking)

	case "booking-payments":
		fs := flag.NewFlagSet("booking-payments", flag.ExitOnError)
		id := fs.Int64("id", 0, "booking id")
		_ = fs.Parse(flag.Args()[1:])
		if *id <= 0 {
			fail(errors.New("need -id"))
		}
		payments, err := client.BookingPayments(ctx, *id)
		if err != nil {
			fail(err)
		}
		printJSON(payments)

	case "booking-create":
		fs := flag.NewFlagSet("booking-create", flag.ExitOnError)
		file := fs.String("file", "", "booking JSON ('-'=stdin)")
		_ = fs.Parse(flag.Args()[1:])
		if *file == "" {
			fail(errors.New("need -file"))
		}
		form, err := readForm[model.BookingForm](*file)
		if err != nil {
			fail(err)
		}
		booking, err := client.CreateBooking(ctx, form)
		if err != nil {
			fail(err)
		}
		printJSON(booking)

	case "booking-status":
		fs := flag.NewFlagSet("booking-status", flag.ExitOnError)
		id := fs.Int64("id", 0, "booking id")
		status := fs.String("status", "", "new status")
		_ = fs.Parse(flag.Args()[1:])
		if *id <= 0 || *status == "" {
			fail(errors.New("need -id and -status"))
		}
		booking, err := client.SetBookingStatus(ctx, *id, *status)
		if err != nil {
			fail(err)
		}
		printJSON(booking)

	case "console":
		// the console manages its own lifetime; the one-shot deadline does not apply
		cancel()
		if err := runConsole(context.Background(), store, client, logger); err != nil {
			fail(err)
		}

	default:
		usage()
	}
}

// ---- helpers ----

func readForm[T any](path string) (T, error) {
	var form T
	b, err := readAll(path)
	if err != nil {
		return form, err
	}
	if err := json.Unmarshal(b, &form); err != nil {
		return form, fmt.Errorf("parse %s: %w", path, err)
	}
	return form, nil
}

// stringList collects repeated -file flags.
type stringList []string

func (l *stringList) String() string { return strings.Join(*l, ",") }
func (l *stringList) Set(v string) error {
	*l = append(*l, v)
	return nil
}
