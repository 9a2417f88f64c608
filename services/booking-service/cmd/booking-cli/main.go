package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/md-rashed-zaman/slotbook/libs/config"
	"github.com/md-rashed-zaman/slotbook/libs/grpcx"
	"github.com/md-rashed-zaman/slotbook/libs/kafkax"
	"github.com/md-rashed-zaman/slotbook/libs/runtime"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/events"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/grpcserver"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/session"
)

const usage = `usage: booking-cli <command> [flags]

commands:
  slots  list the open slots of a day
  book   book a slot of a day
  tail   print booking events as they are published
`

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fatal(err.Error())
	}
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	logger := runtime.NewLogger("booking-cli", config.String("LOG_LEVEL", "warn"))

	ctx, stop := runtime.SignalContext()
	defer stop()

	if err := run(ctx, os.Args[1], os.Args[2:], os.Stdout, logger); err != nil {
		fatal(err.Error())
	}
}

func run(ctx context.Context, cmd string, args []string, out io.Writer, logger *slog.Logger) error {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	var (
		addr    = fs.String("addr", config.String("BOOKING_GRPC_ADDR", "localhost:9093"), "booking service gRPC address")
		tz      = fs.String("tz", config.String("TIMEZONE", "UTC"), "time zone of the dates and clocks")
		timeout = fs.Duration("timeout", 5*time.Second, "dial and call timeout")
		date    = fs.String("date", time.Now().Format("2006-01-02"), "day to work on (yyyy-MM-dd)")
		slotID  = fs.String("slot", "", "slot id to book")
		name    = fs.String("name", "", "customer name")
		email   = fs.String("email", "", "customer email")
		phone   = fs.String("phone", "", "customer phone")
		notes   = fs.String("notes", "", "booking notes")
		brokers = fs.String("brokers", config.String("KAFKA_BROKERS", ""), "kafka brokers, comma separated")
		topic   = fs.String("topic", config.String("KAFKA_BOOKING_TOPIC", events.TopicBookingRecorded), "booking event topic")
		group   = fs.String("group", "", "consumer group (empty reads from the latest offset)")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd == "tail" {
		list := kafkax.SplitBrokers(*brokers)
		if len(list) == 0 {
			return fmt.Errorf("KAFKA_BROKERS is required")
		}
		reader := events.NewReader(events.FollowerConfig{Brokers: list, GroupID: *group, Topic: *topic})
		events.NewFollower(reader, logger, printEvent(out)).Run(ctx)
		return nil
	}

	loc, err := time.LoadLocation(*tz)
	if err != nil {
		return fmt.Errorf("timezone %q: %w", *tz, err)
	}
	conn, err := grpcx.Dial(ctx, *addr, grpcx.DialOptions{Timeout: *timeout})
	if err != nil {
		return fmt.Errorf("dial %s: %w", *addr, err)
	}
	defer conn.Close()

	client := grpcserver.NewClient(conn, loc)
	ctrl := session.NewController(client, client, logger)
	callCtx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	switch cmd {
	case "slots":
		return listSlots(callCtx, ctrl, *date, loc, out)
	case "book":
		return bookSlot(callCtx, ctrl, bookRequest{
			Date:   *date,
			SlotID: strings.TrimSpace(*slotID),
			Name:   *name,
			Email:  *email,
			Phone:  *phone,
			Notes:  *notes,
		}, loc, out)
	default:
		return fmt.Errorf("unknown command %q\n%s", cmd, usage)
	}
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
