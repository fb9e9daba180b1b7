// ismctl drives an ISM43362 module, real or emulated, from a host.
//
//	ismctl [-config ismctl.yaml] join
//	ismctl [-config ismctl.yaml] get http://example.com/
//	ismctl [-config ismctl.yaml] mqtt -n 3 hello world
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/soypat/ism43362"
)

const getTimeout = 30 * time.Second

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "ismctl - drive an ISM43362 es-WiFi module.\n\tUsage: ismctl [flags] join|get <url>|mqtt [-n count] [message]\n")
		flag.PrintDefaults()
	}
	cfgFile := flag.String("config", "", "YAML configuration file.")
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}
	cfg, err := LoadConfig(*cfgFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger, logCloser, err := newLogger(cfg.Log, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	err = run(context.Background(), cfg, logger, flag.Args(), os.Stdout)
	logCloser.Close()
	if err != nil {
		fmt.Fprintln(os.Stderr, "ismctl:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *Config, logger *slog.Logger, args []string, stdout io.Writer) error {
	a, release, err := openAdapter(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := release(); err != nil {
			logger.Error("release", slog.String("err", err.Error()))
		}
	}()
	if err := join(a, cfg.WiFi, stdout); err != nil {
		return err
	}
	switch args[0] {
	case "join":
		return nil
	case "get":
		if len(args) < 2 {
			return errors.New("get requires a URL")
		}
		return runGet(ctx, a, args[1], stdout)
	case "mqtt":
		return runMQTT(ctx, a, cfg.MQTT, logger, args[1:])
	}
	return fmt.Errorf("unknown command %q", args[0])
}

func join(a *ism43362.Adapter, wifi WiFiConfig, stdout io.Writer) error {
	if wifi.SSID == "" {
		return errors.New("no SSID configured, set wifi.ssid or ISMCTL_SSID")
	}
	if err := a.Join(wifi.SSID, wifi.Password); err != nil {
		return err
	}
	dev := a.Device()
	ip, err := dev.Addr()
	if err != nil {
		return err
	}
	mac, err := dev.HardwareAddr6()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(stdout, "joined %s ip=%s mac=%x\n", dev.SSID(), ip, mac)
	return err
}

// runGet performs an HTTP/1.1 GET of rawURL and copies the response to w.
// The exchange runs on a single goroutine since the driver is not safe for
// concurrent use, which rules out [http.Transport].
func runGet(ctx context.Context, a *ism43362.Adapter, rawURL string, w io.Writer) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	} else if u.Scheme != "http" {
		return errors.New("only plain http URLs are supported")
	}
	hostport := u.Host
	if u.Port() == "" {
		hostport = net.JoinHostPort(u.Hostname(), "80")
	}
	conn, err := dialer{a: a}.DialContext(ctx, "tcp", hostport)
	if err != nil {
		return err
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(getTimeout))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Close = true
	req.Header.Set("User-Agent", "ismctl")
	if err := req.Write(conn); err != nil {
		return err
	}
	resp, err := http.ReadResponse(bufio.NewReader(conn), req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	fmt.Fprintln(w, resp.Proto, resp.Status)
	_, err = io.Copy(w, resp.Body)
	return err
}
