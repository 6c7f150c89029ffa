// Command pairchatctl is a headless admin tool for the shared directory
// store: register clients, inspect contact lists, and send messages without
// the terminal interface.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/pairchat/pairchat/internal/bus"
	"github.com/pairchat/pairchat/internal/chat"
	"github.com/pairchat/pairchat/internal/directory"
	"github.com/pairchat/pairchat/internal/profile"
	"github.com/pairchat/pairchat/internal/session"
)

func main() {
	storeFlag := flag.String("store", "", "directory store path (overrides config)")
	jsonFlag := flag.Bool("json", false, "output in JSON format")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	db, err := directory.Open(profile.ResolveStorePath(*storeFlag), bus.New())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: cannot open store: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if _, err := db.Migrate(); err != nil {
		fmt.Fprintf(os.Stderr, "error: migrate: %v\n", err)
		os.Exit(1)
	}

	switch args[0] {
	case "signup":
		cmdSignup(db, args[1:])
	case "clients":
		cmdClients(db, *jsonFlag)
	case "contacts":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: pairchatctl contacts <client-id>")
			os.Exit(1)
		}
		cmdContacts(db, args[1], *jsonFlag)
	case "send":
		if len(args) < 4 {
			fmt.Fprintln(os.Stderr, "usage: pairchatctl send <from-id> <to-id> <text>")
			os.Exit(1)
		}
		cmdSend(db, args[1], args[2], args[3])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: pairchatctl [--store <path>] [--json] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  signup <name> <email> <mobile> <password>   Register a client")
	fmt.Fprintln(os.Stderr, "  clients                                     List registered clients")
	fmt.Fprintln(os.Stderr, "  contacts <client-id>                        Show a client's contact list")
	fmt.Fprintln(os.Stderr, "  send <from-id> <to-id> <text>               Send a message")
}

func cmdSignup(db *directory.DB, args []string) {
	if len(args) < 4 {
		fmt.Fprintln(os.Stderr, "usage: pairchatctl signup <name> <email> <mobile> <password>")
		os.Exit(1)
	}
	provider := session.NewProviderWithoutCache(db, zap.NewNop())
	if err := provider.Signup(args[0], args[1], args[2], args[3]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Registered %q\n", args[0])
}

func cmdClients(db *directory.DB, jsonOut bool) {
	clients, err := db.ListClients("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if jsonOut {
		outputJSON(clients)
		return
	}
	if len(clients) == 0 {
		fmt.Println("No clients registered.")
		return
	}
	for _, c := range clients {
		fmt.Printf("%-36s %-20s %s\n", c.ID, c.Name, c.Email)
	}
}

func cmdContacts(db *directory.DB, clientID string, jsonOut bool) {
	contacts, err := chat.NewProjector(db, clientID, zap.NewNop()).Project()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if jsonOut {
		outputJSON(contacts)
		return
	}
	if len(contacts) == 0 {
		fmt.Println("No contacts.")
		return
	}
	for _, c := range contacts {
		preview := "-"
		if c.LastMessage != nil {
			preview = c.LastMessage.Context
		}
		fmt.Printf("%-36s %-20s %s\n", c.Client.ID, c.Client.Name, preview)
	}
}

func cmdSend(db *directory.DB, fromID, toID, text string) {
	logger := zap.NewNop()
	to, err := db.GetClient(toID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if to == nil {
		fmt.Fprintf(os.Stderr, "error: no client %q\n", toID)
		os.Exit(1)
	}

	conv, err := chat.NewResolver(db, logger).Resolve(fromID, toID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	sync := chat.NewSynchronizer(db, fromID, logger)
	if err := sync.Open(conv, to.Name); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer sync.Close()

	msg, err := sync.Send(text)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if msg == nil {
		fmt.Fprintln(os.Stderr, "error: empty message")
		os.Exit(1)
	}
	fmt.Printf("Sent %s\n", msg.ID)
}

func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "json encode error: %v\n", err)
	}
}
