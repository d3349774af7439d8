package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

func main() {
	server := flag.String("server", "http://localhost:3210", "sparkbot server URL")
	user := flag.String("user", "cli-user", "User name for chat")
	agentName := flag.String("agent", "", "Agent to talk to when no @Name is given; also polled for idle nudges")
	idleEvery := flag.Duration("idle-poll", 5*time.Second, "How often to poll the agent for idle nudges (0 disables)")
	flag.Parse()

	fmt.Println("sparkbot CLI Chat")
	fmt.Printf("Server: %s | User: %s\n", *server, *user)
	fmt.Println("Type 'exit' or 'quit' to leave. Use @AgentName to route.")
	fmt.Println("Commands: /status, /agents, /help, /mood <agent>, /history <agent> [n]")
	fmt.Println("---")

	fetchAgents(*server)

	if *agentName != "" && *idleEvery > 0 {
		go pollIdle(*server, *agentName, *idleEvery)
	}

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "exit" || input == "quit" {
			fmt.Println("Bye!")
			return
		}
		if input == "/status" {
			fetchStatus(*server)
			continue
		}
		if input == "/agents" {
			fetchAgents(*server)
			continue
		}

		sendMessage(*server, *user, withAgent(*agentName, input))
	}
}

func fetchAgents(server string) {
	resp, err := http.Get(server + "/api/agents")
	if err != nil {
		printError("Failed to fetch agents: %v", err)
		return
	}
	defer resp.Body.Close()

	var agents []struct {
		Name   string `json:"name"`
		Age    int    `json:"age"`
		Gender string `json:"gender"`
		Memory struct {
			Mood string `json:"mood"`
		} `json:"memory"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&agents); err != nil {
		printError("Failed to parse agents: %v", err)
		return
	}
	if len(agents) == 0 {
		fmt.Println("No agents registered yet.")
		return
	}
	fmt.Println("Available agents:")
	for _, a := range agents {
		fmt.Printf("  @%s (%d, %s) feeling %s\n", a.Name, a.Age, a.Gender, a.Memory.Mood)
	}
}

func fetchStatus(server string) {
	resp, err := http.Get(server + "/api/gateway/status")
	if err != nil {
		printError("Failed to fetch status: %v", err)
		return
	}
	defer resp.Body.Close()

	var statuses []struct {
		Platform    string  `json:"platform"`
		Connected   bool    `json:"connected"`
		ConnectedAt *string `json:"connected_at,omitempty"`
		Error       string  `json:"error,omitempty"`
		Details     string  `json:"details,omitempty"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&statuses); err != nil {
		printError("Failed to parse status: %v", err)
		return
	}
	fmt.Println("Gateway Status:")
	for _, s := range statuses {
		icon := "\033[31m✗\033[0m"
		if s.Connected {
			icon = "\033[32m✓\033[0m"
		}
		fmt.Printf("  %s %s", icon, s.Platform)
		if s.Details != "" {
			fmt.Printf(" (%s)", s.Details)
		}
		if s.Error != "" {
			fmt.Printf(" \033[31m(%s)\033[0m", s.Error)
		}
		fmt.Println()
	}
}

func sendMessage(server, user, content string) {
	body, _ := json.Marshal(map[string]string{
		"user_id":   user,
		"user_name": user,
		"content":   content,
	})

	client := &http.Client{Timeout: 35 * time.Second}
	resp, err := client.Post(
		server+"/api/gateway/rest/message",
		"application/json",
		bytes.NewReader(body),
	)
	if err != nil {
		printError("Request failed: %v", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		printError("Server error (%d): %s", resp.StatusCode, string(data))
		return
	}

	var msg struct {
		Agent   string `json:"agent"`
		Content string `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&msg); err != nil {
		printError("Failed to parse response: %v", err)
		return
	}

	if msg.Agent != "" {
		fmt.Printf("\033[36m[%s]\033[0m %s\n", msg.Agent, msg.Content)
	} else {
		fmt.Println(msg.Content)
	}
}

// withAgent prefixes a mention of the default agent unless the input is a
// command or already mentions someone.
func withAgent(agentName, input string) string {
	if agentName == "" || strings.HasPrefix(input, "/") || strings.Contains(input, "@") {
		return input
	}
	return strings.TrimSpace("@" + agentName + " " + input)
}

// pollIdle prints idle nudges from the agent while the user is quiet.
func pollIdle(server, agentName string, every time.Duration) {
	client := &http.Client{Timeout: 5 * time.Second}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for range ticker.C {
		resp, err := client.Get(server + "/api/agents/" + url.PathEscape(agentName) + "/idle")
		if err != nil {
			continue
		}
		if resp.StatusCode == http.StatusOK {
			var body struct {
				Nudge string `json:"nudge"`
			}
			if json.NewDecoder(resp.Body).Decode(&body) == nil && body.Nudge != "" {
				fmt.Printf("\n\033[36m[%s]\033[0m %s\n> ", agentName, body.Nudge)
			}
		}
		resp.Body.Close()
	}
}

func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "\033[31m"+format+"\033[0m\n", args...)
}
