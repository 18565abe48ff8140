package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cabanalodge/adminctl/internal/api"
	"github.com/cabanalodge/adminctl/internal/guard"
	"github.com/cabanalodge/adminctl/internal/model"
	"github.com/cabanalodge/adminctl/internal/session"
)

// settleTimeout bounds how long a screen waits for the guard to leave the
// skeleton state before giving up on the navigation.
const settleTimeout = 35 * time.Second

// runConsole drives the protected screens through the route guard: every
// screen switch is a route change, the guard decides whether the screen may
// draw, and an expired session drops the user to the login prompt.
func runConsole(ctx context.Context, store *session.Store, client *api.Client, logger *zap.Logger) error {
	g := guard.New(guard.Options{
		Session: store,
		Navigator: guard.NavigatorFunc(func() {
			fmt.Println("\nsession ended - use 'login' to sign in")
		}),
		Logger: logger,
	})
	g.Start(ctx)
	defer g.Stop()

	fmt.Println("adminctl console - 'help' lists commands")
	showScreen(ctx, g, client, "dashboard")

	in := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !in.Scan() {
			return in.Err()
		}
		fields := strings.Fields(in.Text())
		if len(fields) == 0 {
			continue
		}

		switch cmd := fields[0]; cmd {
		case "quit", "exit":
			return nil

		case "help":
			fmt.Println("screens:  dashboard  cabins  bookings  amenities")
			fmt.Println("session:  login  logout  whoami")
			fmt.Println("other:    help  quit")

		case "dashboard", "cabins", "bookings", "amenities":
			g.RouteChanged(ctx, "/"+cmd)
			showScreen(ctx, g, client, cmd)

		case "login":
			promptLogin(ctx, store, in)
			g.RouteChanged(ctx, "/dashboard")
			showScreen(ctx, g, client, "dashboard")

		case "logout":
			store.Logout(ctx)

		case "whoami":
			if id := store.Identity(); id != nil {
				fmt.Printf("%s <%s> (%s)\n", id.Name, id.Email, id.Role)
			} else {
				fmt.Println("not signed in")
			}

		default:
			fmt.Printf("unknown command %q - try 'help'\n", cmd)
		}
	}
}

// showScreen obeys the guard's render rule: skeleton while checking, nothing
// when the redirect fired, content otherwise.
func showScreen(ctx context.Context, g *guard.Guard, client *api.Client, name string) {
	switch waitSettled(g) {
	case guard.RenderNothing:
		// whichever navigator tore the session down already announced it
		// (the guard's on an anon route check, the store's on a 401)
		return
	case guard.RenderSkeleton:
		fmt.Println("still checking the session, try again")
		return
	}

	var err error
	switch name {
	case "dashboard":
		err = showDashboard(ctx, client)
	case "cabins":
		err = showCabins(ctx, client)
	case "bookings":
		err = showBookings(ctx, client)
	case "amenities":
		err = showAmenities(ctx, client)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
}

// waitSettled polls the guard until it stops answering skeleton, printing the
// placeholder once so the wait is visible.
func waitSettled(g *guard.Guard) guard.Render {
	r := g.Render()
	if r != guard.RenderSkeleton {
		return r
	}
	fmt.Println("...")
	deadline := time.Now().Add(settleTimeout)
	for time.Now().Before(deadline) {
		time.Sleep(25 * time.Millisecond)
		if r = g.Render(); r != guard.RenderSkeleton {
			return r
		}
	}
	return guard.RenderSkeleton
}

// promptLogin shares the console's scanner so buffered input is not lost.
func promptLogin(ctx context.Context, store *session.Store, in *bufio.Scanner) {
	fmt.Print("email: ")
	if !in.Scan() {
		return
	}
	email := in.Text()
	fmt.Print("password: ")
	if !in.Scan() {
		return
	}
	password := in.Text()

	out := store.Login(ctx, strings.TrimSpace(email), strings.TrimSpace(password))
	if !out.Success {
		fmt.Println(out.Message)
		return
	}
	fmt.Printf("welcome, %s\n", out.Identity.Name)
}

// ---- screens ----

func showDashboard(ctx context.Context, client *api.Client) error {
	cabins, err := client.Cabins(ctx)
	if err != nil {
		return err
	}
	bookings, err := client.Bookings(ctx)
	if err != nil {
		return err
	}

	cabinsByStatus := map[string]int{}
	for _, c := range cabins {
		cabinsByStatus[c.Status]++
	}
	bookingsByStatus := map[string]int{}
	var revenue float64
	for _, b := range bookings {
		bookingsByStatus[b.Status]++
		if b.Status == model.BookingConfirmed {
			revenue += b.TotalAmount
		}
	}

	fmt.Printf("cabins: %d (%d available, %d occupied, %d maintenance)\n",
		len(cabins),
		cabinsByStatus[model.CabinAvailable],
		cabinsByStatus[model.CabinOccupied],
		cabinsByStatus[model.CabinMaintenance])
	fmt.Printf("bookings: %d (%d confirmed, %d pending, %d cancelled)\n",
		len(bookings),
		bookingsByStatus[model.BookingConfirmed],
		bookingsByStatus[model.BookingPending],
		bookingsByStatus[model.BookingCancelled])
	fmt.Printf("confirmed revenue: %.2f\n", revenue)
	return nil
}

func showCabins(ctx context.Context, client *api.Client) error {
	cabins, err := client.Cabins(ctx)
	if err != nil {
		return err
	}
	for _, c := range cabins {
		fmt.Printf("%4d  %-20s  %-13s  cap %2d  %8.2f  %s\n",
			c.ID, c.Name, c.Status, c.Capacity, c.Price, c.Location)
	}
	return nil
}

func showBookings(ctx context.Context, client *api.Client) error {
	bookings, err := client.Bookings(ctx)
	if err != nil {
		return err
	}
	for _, b := range bookings {
		name := "-"
		if b.Customer != nil {
			name = b.Customer.Name
		}
		fmt.Printf("%4d  cabin %3d  %s -> %s  %-10s  %-20s  %8.2f\n",
			b.ID, b.CabinID, b.StartDate, b.EndDate, b.Status, name, b.TotalAmount)
	}
	return nil
}

func showAmenities(ctx context.Context, client *api.Client) error {
	amenities, err := client.Amenities(ctx)
	if err != nil {
		return err
	}
	for _, a := range amenities {
		fmt.Printf("%4d  %s\n", a.ID, a.Name)
	}
	return nil
}
