// attrprobe drives the SDK from a terminal against a running backend: it
// captures attribution signals, runs the deferred check, resolves links
// directly, and exercises the link management API.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/deferlink/deferlink-go/config"
	"github.com/deferlink/deferlink-go/deeplink"
	"github.com/deferlink/deferlink-go/internal/infra/logger"
	infraRedis "github.com/deferlink/deferlink-go/internal/infra/redis"
	"github.com/deferlink/deferlink-go/internal/store/redisstore"
)

const usage = `usage: attrprobe <command> [args]

commands:
  check                 run the deferred deep link check
  resolve <url>         resolve a link immediately (no attribution store)
  capture <url>         capture a scheme-open short id for a later check
  capture-ul <url>      capture a universal-link short id for a later check
  create <url> [title]  create a link
  list [page] [limit]   list links
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	log := logger.MustInit(logger.Config{
		Development: true,
		Level:       os.Getenv("LOG_LEVEL"),
	})
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	redisClient, err := infraRedis.NewClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()

	deviceID := cfg.SDK.DeviceID
	if deviceID == "" {
		deviceID = "attrprobe"
	}

	client := deeplink.New(deeplink.Options{
		BaseURL:   cfg.SDK.BaseURL,
		APIKey:    cfg.SDK.APIKey,
		Store:     redisstore.NewStore(redisClient, deviceID),
		Clipboard: redisstore.NewClipboardSource(redisClient, deviceID),
		Logger:    log,
	})

	if err := run(ctx, client, os.Args[1], os.Args[2:]); err != nil {
		log.Fatal("Command failed", zap.String("command", os.Args[1]), zap.Error(err))
	}
}

func run(ctx context.Context, client *deeplink.Client, command string, args []string) error {
	switch command {
	case "check":
		data := client.CheckForDeferredDeepLink(ctx)
		if data == nil {
			fmt.Println("no attribution")
			return nil
		}
		return printJSON(data)

	case "resolve":
		if len(args) < 1 {
			return fmt.Errorf("resolve needs a url")
		}
		data, err := client.HandleDeepLink(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(data)

	case "capture":
		if len(args) < 1 {
			return fmt.Errorf("capture needs a url")
		}
		client.HandleOpenURL(ctx, args[0])
		fmt.Println("captured")
		return nil

	case "capture-ul":
		if len(args) < 1 {
			return fmt.Errorf("capture-ul needs a url")
		}
		client.HandleUniversalLink(ctx, args[0])
		fmt.Println("captured")
		return nil

	case "create":
		if len(args) < 1 {
			return fmt.Errorf("create needs a url")
		}
		input := deeplink.CreateLinkInput{BaseURL: args[0]}
		if len(args) > 1 {
			input.Title = args[1]
		}
		resp, err := client.CreateLink(ctx, input)
		if err != nil {
			return err
		}
		return printJSON(resp)

	case "list":
		page, limit := 1, 20
		if len(args) > 0 {
			fmt.Sscanf(args[0], "%d", &page)
		}
		if len(args) > 1 {
			fmt.Sscanf(args[1], "%d", &limit)
		}
		resp, err := client.GetLinks(ctx, page, limit)
		if err != nil {
			return err
		}
		return printJSON(resp)

	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func printJSON(v any) error {
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(encoded))
	return nil
}
