package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"

	"github.com/raterly/go-raterly/appstate"
	"github.com/raterly/go-raterly/internal/config"
	"github.com/raterly/go-raterly/session"
	"github.com/raterly/go-raterly/session/oidchttp"
	"github.com/raterly/go-raterly/snapshot/badgerstore"
	"github.com/raterly/go-raterly/tenant"
	tenanthttp "github.com/raterly/go-raterly/tenant/httprepo"
	userhttp "github.com/raterly/go-raterly/users/httprepo"
)

const sessionCheckInterval = 5 * time.Minute

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error running raterly: %s\n", err)
	}
	log.Printf("Stopped\n")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	_ = godotenv.Load()
	c := config.New()
	displayAppname(c.GetAppName())

	snaps, err := badgerstore.Open(badgerstore.DefaultConfig(c.GetDataFolder()))
	if err != nil {
		return fmt.Errorf("badgerstore.Open: %w", err)
	}
	defer snaps.Close()

	ctx := context.Background()
	identity, err := oidchttp.New(ctx, oidchttp.Config{
		IssuerURL:    c.GetIssuerURL(),
		ClientID:     c.GetClientID(),
		ClientSecret: c.GetClientSecret(),
		SignUpURL:    c.GetSignUpURL(),
	})
	if err != nil {
		return fmt.Errorf("oidchttp.New: %w", err)
	}

	// Repos authenticate with whatever token the session store holds at
	// request time. The store does not exist yet, so the token func is
	// late-bound through the variable.
	var sessionStore *session.Store
	token := func() string {
		if sessionStore == nil {
			return ""
		}
		return sessionStore.AccessToken()
	}
	profiles := userhttp.NewProfileRepo(c.GetAPIBaseURL(), token)
	tenants := tenanthttp.NewTenantRepo(c.GetAPIBaseURL(), token)

	sessionStore, err = session.New(session.Deps{
		Identity:  identity,
		Profiles:  profiles,
		Snapshots: snaps,
	})
	if err != nil {
		return fmt.Errorf("session.New: %w", err)
	}

	tenantStore, err := tenant.New(tenant.Deps{
		Tenants:       tenants,
		Profiles:      profiles,
		CurrentUserID: sessionStore.UserID,
		Snapshots:     snaps,
	})
	if err != nil {
		return fmt.Errorf("tenant.New: %w", err)
	}

	app, err := appstate.New(sessionStore, tenantStore)
	if err != nil {
		return fmt.Errorf("appstate.New: %w", err)
	}

	if err := app.Initialize(ctx); err != nil {
		log.Printf("Initialization completed with error: %s\n", err)
	}
	printStatus(app)

	go watchSession(ctx, app)
	waitForStopSignal()
	return nil
}

// watchSession periodically re-validates the session so a token that expires
// while the process idles gets refreshed or cleared.
func watchSession(ctx context.Context, app *appstate.App) {
	ticker := time.NewTicker(sessionCheckInterval)
	defer ticker.Stop()
	for range ticker.C {
		if err := app.Sessions().CheckSession(ctx); err != nil {
			log.Printf("Session check failed: %s\n", err)
		}
	}
}

func printStatus(app *appstate.App) {
	snap := app.Snapshot()
	if !snap.Session.IsAuthenticated {
		log.Printf("No active session\n")
		return
	}
	log.Printf("Signed in as %s\n", snap.Session.User.Email)
	if snap.Tenant.Current != nil {
		log.Printf("Active tenant: %s (%s)\n", snap.Tenant.Current.Name, snap.Tenant.Current.Status)
	} else {
		log.Printf("No tenant assigned\n")
	}
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
