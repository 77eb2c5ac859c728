package main

import (
	"cgibox/pkg/cgi"
	"cgibox/pkg/gateway"
	"cgibox/pkg/models"
	"cgibox/pkg/scripts"
	"cgibox/pkg/utils/logger"
	"flag"
	"fmt"
	"os"
	"path/filepath"
)

func printRootHelp() {
	fmt.Println(`cgibox - CGI scripts and the gateway that runs them

Usage:
  cgibox <command> [options]

Script Commands (run under a CGI server):
  calc      Arithmetic on x and y with op
  echo      Echo the request method, query and body
  slow      Sleep, then answer

Gateway Commands:
  up        Start the cgibox gateway
  down      Stop the cgibox gateway
  init      Write a starter config
  help      Show help for a command

Run 'cgibox help <command>' for details on a specific command.`)
}

func printUpHelp() {
	fmt.Println(`Usage:
  cgibox up [--config <path>]

Options:
  --config   Path to cgibox config YAML file (default: ./cgibox.config.yaml)`)
}

func printDownHelp() {
	fmt.Println(`Usage:
  cgibox down [--config <path>]

Options:
  --config   Path to cgibox config YAML file (default: ./cgibox.config.yaml)`)
}

func printInitHelp() {
	fmt.Println(`Usage:
  cgibox init [--config <path>]

Options:
  --config   Where to write the config YAML file (default: ./cgibox.config.yaml)`)
}

func printScriptHelp(name string) {
	fmt.Printf(`Usage:
  cgibox %s

Reads REQUEST_METHOD, QUERY_STRING and CONTENT_LENGTH from the environment and
the request body from stdin, then writes a CGI response to stdout.
`, name)
}

// parseConfigPath parses the --config flag of a gateway subcommand into an absolute path.
func parseConfigPath(command string, mustExist bool) string {
	runCmd := flag.NewFlagSet(command, flag.ExitOnError)
	configPath := runCmd.String("config", "cgibox.config.yaml", "Path to configuration YAML file")

	if err := runCmd.Parse(os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		os.Exit(1)
	}

	absPath, err := filepath.Abs(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to resolve config path: %v\n", err)
		os.Exit(1)
	}

	if _, err := os.Stat(absPath); mustExist && os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Config file not found: %s\n", absPath)
		os.Exit(1)
	}
	return absPath
}

// runScript serves one CGI invocation from the process environment. Diagnostics
// go to stderr so stdout carries only the response.
func runScript(name string) {
	log, err := logger.NewLogger(&models.LogConfig{ToStderr: true, Format: "json", Prefix: name})
	if err != nil {
		log = logger.NewNopLogger()
	}
	defer log.Close()

	env := cgi.OSEnv{}
	registry := scripts.NewRegistry(log, scripts.SlowDelayFromEnv(env))
	handler, _ := registry.Lookup(name)

	if err := scripts.Serve(handler, env, os.Stdin, os.Stdout); err != nil {
		log.Error(fmt.Sprintf("Unable to write response: %v", err))
		os.Exit(1)
	}
}

func main() {
	if len(os.Args) < 2 {
		printRootHelp()
		os.Exit(1)
	}

	switch os.Args[1] {

	case models.SCRIPT_CALC, models.SCRIPT_ECHO, models.SCRIPT_SLOW:
		runScript(os.Args[1])

	case "up":
		absPath := parseConfigPath("up", true)
		gatewayEngine := gateway.InstantiateGatewayEngine(absPath)
		gatewayEngine.Run()

	case "down":
		absPath := parseConfigPath("down", true)
		if err := gateway.KillGateway(absPath); err != nil {
			fmt.Fprintf(os.Stderr, "Unable to stop the cgibox gateway at %s: %v\n", absPath, err)
			os.Exit(1)
		}
		fmt.Printf("Shut down cgibox gateway at %s \n", absPath)

	case "init":
		absPath := parseConfigPath("init", false)
		if _, err := os.Stat(absPath); err == nil {
			fmt.Fprintf(os.Stderr, "Config file already exists: %s\n", absPath)
			os.Exit(1)
		}
		if err := gateway.InitConfig(absPath); err != nil {
			fmt.Fprintf(os.Stderr, "Unable to write config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote cgibox config to %s\n", absPath)

	case "help":
		if len(os.Args) == 2 {
			printRootHelp()
		} else {
			switch os.Args[2] {
			case "up":
				printUpHelp()
			case "down":
				printDownHelp()
			case "init":
				printInitHelp()
			case models.SCRIPT_CALC, models.SCRIPT_ECHO, models.SCRIPT_SLOW:
				printScriptHelp(os.Args[2])
			default:
				fmt.Printf("Unknown help topic: %s\n", os.Args[2])
				printRootHelp()
				os.Exit(1)
			}
		}

	default:
		fmt.Printf("Unknown command: %s\n\n", os.Args[1])
		printRootHelp()
		os.Exit(1)
	}
}
