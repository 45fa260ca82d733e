// Command falconctl is a thin HTTP client for falcond's control API.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/gookit/color"
	"resty.dev/v3"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: falconctl [-addr host:port] build|status|dirty-sources|dirty <target>|interrupt|shutdown|graphviz")
	}

	addr := "localhost:4242"
	cmd := args[0]
	rest := args[1:]
	if cmd == "-addr" {
		if len(args) < 3 {
			return fmt.Errorf("usage: falconctl -addr host:port <command>")
		}
		addr = args[1]
		cmd = args[2]
		rest = args[3:]
	}

	client := resty.New().SetBaseURL("http://" + addr)
	defer client.Close()

	switch cmd {
	case "build":
		return post(client, "/build")
	case "status":
		return get(client, "/status")
	case "dirty-sources":
		return get(client, "/dirty-sources")
	case "dirty":
		if len(rest) != 1 {
			return fmt.Errorf("usage: falconctl dirty <target>")
		}
		return post(client, "/dirty?target="+rest[0])
	case "interrupt":
		return post(client, "/interrupt")
	case "shutdown":
		return post(client, "/shutdown")
	case "graphviz":
		return dumpGraphviz(client)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func get(client *resty.Client, path string) error {
	resp, err := client.R().Get(path)
	if err != nil {
		return err
	}
	return printResponse(resp.Bytes())
}

func post(client *resty.Client, path string) error {
	resp, err := client.R().Post(path)
	if err != nil {
		return err
	}
	return printResponse(resp.Bytes())
}

func dumpGraphviz(client *resty.Client) error {
	resp, err := client.R().Get("/graphviz")
	if err != nil {
		return err
	}
	fmt.Println(string(resp.Bytes()))
	return nil
}

func printResponse(body []byte) error {
	var v map[string]any
	if err := json.Unmarshal(body, &v); err != nil {
		fmt.Println(string(body))
		return nil
	}
	pretty, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	if _, isError := v["error"]; isError {
		color.Red.Println(string(pretty))
	} else {
		color.Green.Println(string(pretty))
	}
	return nil
}
