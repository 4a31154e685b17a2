// Package main is the entrypoint of the avtocod command line client.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	stdprometheus "github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"avtocod/client"
	"avtocod/config"
	"avtocod/logging"
	"avtocod/metrics"
	"avtocod/registry"
	"avtocod/server"
	"avtocod/types"
)

const usage = `Usage: avtocod [command]
       avtocod balance                 Show the product balance of the account.
       avtocod token                   Show the API token of the account.
       avtocod report <uuid>...        Fetch reports, several in one batch.
       avtocod create <type> <query>   Create a report; type is VIN, GRZ or BODY.
       avtocod reports [limit]         List reports of the account (all when no limit).
       avtocod fake [addr]             Serve a fake provider on addr (default 127.0.0.1:8080).

Environment: AVTOCOD_TOKEN or AVTOCOD_EMAIL and AVTOCOD_PASSWORD, AVTOCOD_API_URL,
AVTOCOD_ETCD_ENDPOINTS, AVTOCOD_LOG_LEVEL. See config.Config for the full list.
`

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("avtocod: %v", err)
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("avtocod: log level: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := args[0]
	switch cmd {
	case "help", "-h", "--help":
		fmt.Print(usage)
		return
	case "fake":
		addr := "127.0.0.1:8080"
		if len(args) > 1 {
			addr = args[1]
		}
		if err := runFake(ctx, cfg, logger, addr); err != nil {
			log.Fatalf("avtocod fake: %v", err)
		}
		return
	}

	m, err := metrics.New(cfg.MetricsNamespace, stdprometheus.DefaultRegisterer)
	if err != nil {
		log.Fatalf("avtocod: %v", err)
	}
	c, err := client.FromConfig(cfg, logger, m)
	if err != nil {
		log.Fatalf("avtocod: %v", err)
	}
	defer c.Close()

	if c.Token() == "" && cfg.HasCredentials() {
		if _, err := c.Login(ctx, cfg.Email, cfg.Password); err != nil {
			log.Fatalf("avtocod: login: %v", err)
		}
	}

	var out any
	switch cmd {
	case "balance":
		out, err = c.GetBalance(ctx)
	case "token":
		out, err = c.GetToken(ctx)
	case "report":
		out, err = runReport(ctx, c, args[1:])
	case "create":
		if len(args) != 3 {
			log.Fatalf("avtocod create: require <type> <query>")
		}
		out, err = c.CreateReport(ctx, args[2], types.QueryType(args[1]))
	case "reports":
		out, err = runReports(ctx, c, args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q.\n%s", cmd, usage)
		os.Exit(1)
	}
	if err != nil {
		log.Fatalf("avtocod %s: %v", cmd, err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Fatalf("avtocod: %v", err)
	}
}

// runReport fetches one report directly and several as one pipeline.
// Failed reports are printed as their error message.
func runReport(ctx context.Context, c *client.Client, uuids []string) (any, error) {
	switch len(uuids) {
	case 0:
		return nil, errors.New("require at least one uuid")
	case 1:
		return c.GetReport(ctx, uuids[0])
	}

	p := c.Pipeline()
	for _, uuid := range uuids {
		p.GetReport(uuid)
	}
	res, err := p.Execute(ctx, client.ExecuteOptions{Partial: true})
	if err != nil {
		return nil, err
	}
	for i, r := range res {
		if err, ok := r.(error); ok {
			res[i] = map[string]string{"uuid": uuids[i], "error": err.Error()}
		}
	}
	return res, nil
}

func runReports(ctx context.Context, c *client.Client, args []string) (any, error) {
	opts := client.IterOptions{Delay: time.Second}
	if len(args) > 0 {
		limit, err := strconv.Atoi(args[0])
		if err != nil || limit < 0 {
			return nil, fmt.Errorf("invalid limit %q", args[0])
		}
		opts.Limit = limit
	}

	reports := []types.BaseReport{}
	for r, err := range c.IterReports(ctx, opts) {
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, nil
}

// runFake serves canned answers for every method, registered in etcd when
// AVTOCOD_ETCD_ENDPOINTS is set.
func runFake(ctx context.Context, cfg *config.Config, logger *zap.Logger, addr string) error {
	svr := server.NewServer(logger)
	svr.Handle("auth.login", server.Result(map[string]string{"uuid": "00000000-0000-0000-0000-000000000001", "token": "fake-token", "email": cfg.Email}))
	svr.Handle("token.get", server.Result(map[string]string{"token": "fake-token"}))
	svr.Handle("profile.balance", server.Result(map[string]any{"balance": []map[string]any{{"product_uuid": "fake-product", "count": 10}}}))
	svr.Handle("report.create", server.Result(map[string]any{"uuid": "fake-report", "channel": "fake", "max_generation_time": 60}))
	svr.Handle("report.get", server.Result(map[string]any{"uuid": "fake-report", "is_ready": true, "is_completed": true}))
	svr.Handle("report.upgrade", server.Fail(17002, "Insufficient balance", nil))
	svr.Handle("report.additional.upgrade", server.Result(map[string]any{"channel": "fake", "max_wait_to_ready_time": 60}))
	svr.Handle("reports.list", server.Result(map[string]any{"reports_list": []any{}}))

	var reg registry.Registry
	if len(cfg.EtcdEndpoints) > 0 {
		etcd, err := registry.NewEtcdRegistry(cfg.EtcdEndpoints, logger)
		if err != nil {
			return err
		}
		defer etcd.Close()
		reg = etcd
	}

	errc := make(chan error, 1)
	go func() {
		errc <- svr.Serve(addr, "http://"+addr+"/rpc", cfg.ServiceName, reg)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return svr.Shutdown(5 * time.Second)
	}
}
