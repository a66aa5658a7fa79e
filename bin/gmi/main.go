package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"

	"github.com/chzyer/readline"
	"github.com/sirupsen/logrus"

	"github.com/pattyshack/gmi/com"
	"github.com/pattyshack/gmi/config"
	"github.com/pattyshack/gmi/session"
	"github.com/pattyshack/gmi/tagscan"
)

func main() {
	configPath := ""
	flag.StringVar(
		&configPath,
		"config",
		config.ProjectFileName,
		"project settings file")

	verbose := false
	flag.BoolVar(&verbose, "v", false, "log mi traffic to stderr")

	tcpTarget := ""
	flag.StringVar(
		&tcpTarget,
		"tcp",
		"",
		"connect to gdbserver at host:port instead of running locally")

	flag.Parse()

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.WarnLevel)
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	settings, err := config.Load(configPath)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	if tcpTarget != "" {
		host, port, err := net.SplitHostPort(tcpTarget)
		if err != nil {
			fmt.Println("invalid -tcp target:", err)
			os.Exit(1)
		}

		settings.TcpPort, err = strconv.Atoi(port)
		if err != nil {
			fmt.Println("invalid -tcp port:", err)
			os.Exit(1)
		}

		settings.Mode = config.TcpMode
		settings.TcpHost = host
	}

	args := flag.Args()
	if len(args) > 0 {
		if settings.Mode == config.TcpMode {
			settings.TcpProgram = args[0]
		} else {
			settings.Program = args[0]
		}
		settings.Arguments = args[1:]
	}

	if settings.Mode == config.LocalMode && settings.Program == "" {
		fmt.Println("no program given")
		os.Exit(1)
	}

	err = run(configPath, settings, logger)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func run(configPath string, settings config.Settings, logger *logrus.Logger) error {
	ctx := context.Background()

	version, err := com.Version(ctx, settings.GdbPath)
	if err != nil {
		return err
	}
	fmt.Println(version)

	channel, err := com.Start(
		ctx,
		com.Options{
			GdbPath: settings.GdbPath,
			Logger:  logger,
		})
	if err != nil {
		return err
	}
	defer func() {
		err := channel.Close()
		if err != nil {
			logger.Warnf("failed to close gdb channel: %s", err)
		}
	}()

	sess := session.New(
		channel,
		session.Options{
			Logger:         logger,
			CommandTimeout: settings.CommandTimeout,
		})
	defer sess.Close()

	scanner := tagscan.NewScanner(settings.CtagsPath, logger)
	err = scanner.Init(ctx)
	if err != nil {
		logger.Warn(err)
	}

	tags := tagscan.NewManager(scanner, logger)
	defer tags.Close()

	rl, err := readline.New("gmi > ")
	if err != nil {
		return err
	}
	defer rl.Close()

	console := newConsole(
		rl.Stdout(),
		configPath,
		settings,
		channel,
		sess,
		tags)

	// Subscribe before initializing so the initial stop is reported.
	sub := sess.Subscribe()

	err = console.initTarget(ctx)
	if err != nil {
		return err
	}

	input := make(chan string)
	go readInput(rl, input)

	targetOutput := channel.TargetOutput()
	for !console.quit {
		select {
		case line, ok := <-input:
			if !ok {
				return nil
			}
			console.execute(line)

		case line, ok := <-channel.Output():
			if !ok {
				fmt.Fprintln(console.out, "gdb exited")
				return nil
			}
			channel.Dispatch(line)

		case data, ok := <-targetOutput:
			if !ok {
				targetOutput = nil
				continue
			}
			sess.HandleTargetOutput(data)

		case <-sub.Ready():
			for _, event := range sub.Drain() {
				console.printEvent(event)
			}

		case path := <-tags.Scanned():
			logger.Debugf("indexed %s", path)
		}
	}

	return nil
}

// readInput forwards console lines until eof.  ctrl-c requests a stop.
func readInput(rl *readline.Instance, input chan<- string) {
	defer close(input)

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			input <- "stop"
			continue
		}

		if err != nil {
			if err != io.EOF {
				fmt.Println("failed to read input:", err)
			}
			return
		}

		input <- line
	}
}
