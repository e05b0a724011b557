// Package ui is the interactive console of a node.
// It reads operator choices, calls the node operations and prints the
// notices raised by the background loops. It owns no domain state.
package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"lanchat/contract"
	"lanchat/domain"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
)

// Chat is the subset of the node used by the menu.
type Chat interface {
	SendMessage(ctx context.Context, ip string, port int, body string) error
	Connect(ctx context.Context, ip string, port int) error
	Peers() []domain.PeerRecord
	Messages() ([]domain.ChatMessage, error)
}

const (
	choiceSend    = "1"
	choicePeers   = "2"
	choiceHistory = "3"
	choiceConnect = "4"
	choiceQuit    = "0"
)

type Menu struct {
	mu        sync.Mutex
	in        io.Reader
	out       io.Writer
	colours   bool
	validator *validator.Validate
}

func NewMenu(in io.Reader, out io.Writer, colours bool) *Menu {
	return &Menu{in: in, out: out, colours: colours, validator: validator.New()}
}

// Run shows the menu until the operator quits, the input ends or ctx is canceled.
func (m *Menu) Run(ctx context.Context, chat Chat) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(m.in)
		for scanner.Scan() {
			select {
			case lines <- strings.TrimSpace(scanner.Text()):
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		m.printMenu()
		choice, ok := m.ask(ctx, lines, "Enter choice: ")
		if !ok {
			return ctx.Err()
		}
		switch choice {
		case choiceSend:
			ip, port, ok := m.askAddress(ctx, lines, "recipient's")
			if !ok {
				continue
			}
			body, ok := m.ask(ctx, lines, "Enter your message: ")
			if !ok {
				return ctx.Err()
			}
			m.send(ctx, chat, ip, port, body)
		case choicePeers:
			m.printPeers(chat.Peers())
		case choiceHistory:
			messages, err := chat.Messages()
			if err != nil {
				m.println(m.paint(color.Red, fmt.Sprintf("Failed to read history - %v", err)))
				continue
			}
			m.printHistory(messages)
		case choiceConnect:
			ip, port, ok := m.askAddress(ctx, lines, "peer's")
			if !ok {
				continue
			}
			m.connect(ctx, chat, ip, port)
		case choiceQuit:
			return nil
		default:
			m.println("Unknown choice.")
		}
	}
}

// Notify prints a notice raised by a background loop.
func (m *Menu) Notify(notice contract.Notice) {
	switch notice.Kind {
	case contract.PeerDiscovered:
		m.println(m.paint(color.Cyan, fmt.Sprintf("Discovered peer %s at %s", notice.Name, notice.Peer)))
	case contract.MessageReceived:
		if notice.Message == nil {
			return
		}
		msg := notice.Message
		m.println(m.paint(color.Green, fmt.Sprintf("Received from %s (%s): %s", msg.SenderID, msg.TeamTag, msg.Body)))
	case contract.PeerDeparted:
		m.println(m.paint(color.Yellow, fmt.Sprintf("%s requested disconnection.", notice.Peer)))
	case contract.PeerOffline:
		m.println(m.paint(color.Yellow, fmt.Sprintf("Peer %s appears offline, removing from list.", notice.Peer)))
	}
}

func (m *Menu) send(ctx context.Context, chat Chat, ip string, port int, body string) {
	if err := chat.SendMessage(ctx, ip, port, body); err != nil {
		m.println(m.paint(color.Red, fmt.Sprintf("Failed to connect to %s - %v", domain.NewPeerID(ip, port), err)))
		return
	}
	m.println(fmt.Sprintf("Message sent to %s", domain.NewPeerID(ip, port)))
}

func (m *Menu) connect(ctx context.Context, chat Chat, ip string, port int) {
	if err := chat.Connect(ctx, ip, port); err != nil {
		m.println(m.paint(color.Red, fmt.Sprintf("Failed to connect to %s - %v", domain.NewPeerID(ip, port), err)))
		return
	}
	m.println(fmt.Sprintf("Connected to %s", domain.NewPeerID(ip, port)))
}

func (m *Menu) askAddress(ctx context.Context, lines <-chan string, whose string) (string, int, bool) {
	ip, ok := m.ask(ctx, lines, fmt.Sprintf("Enter %s IP: ", whose))
	if !ok {
		return "", 0, false
	}
	if err := m.validator.Var(ip, "required,ip|hostname_rfc1123"); err != nil {
		m.println("Invalid IP address.")
		return "", 0, false
	}
	rawPort, ok := m.ask(ctx, lines, fmt.Sprintf("Enter %s port number: ", whose))
	if !ok {
		return "", 0, false
	}
	port, err := domain.ParsePort(rawPort)
	if err != nil {
		m.println("Invalid port number.")
		return "", 0, false
	}
	return ip, port, true
}

func (m *Menu) ask(ctx context.Context, lines <-chan string, label string) (string, bool) {
	m.print(label)
	select {
	case <-ctx.Done():
		return "", false
	case line, ok := <-lines:
		return line, ok
	}
}

func (m *Menu) printMenu() {
	m.println("\n" + m.paint(color.Bold, "***** Menu *****"))
	m.println("1. Send message")
	m.println("2. Query active peers")
	m.println("3. View chat history")
	m.println("4. Connect to active peer")
	m.println("0. Quit")
}

func (m *Menu) printPeers(peers []domain.PeerRecord) {
	if len(peers) == 0 {
		m.println("No connected peers.")
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	fmt.Fprintln(m.out, "Connected Peers:")
	table := m.table([]string{"Peer", "IP", "Port", "Last seen"})
	for _, p := range peers {
		table.Append([]string{string(p.ID), p.IP, fmt.Sprint(p.Port), p.LastSeen.Local().Format(time.TimeOnly)})
	}
	table.Render()
}

func (m *Menu) printHistory(messages []domain.ChatMessage) {
	if len(messages) == 0 {
		m.println("No messages yet.")
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	table := m.table([]string{"Received", "From", "Team", "Message"})
	for _, msg := range messages {
		table.Append([]string{msg.ReceivedAt.Local().Format(time.DateTime), string(msg.SenderID), msg.TeamTag, msg.Body})
	}
	table.Render()
}

func (m *Menu) table(header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(m.out)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	return table
}

func (m *Menu) paint(c color.Color, text string) string {
	if !m.colours {
		return text
	}
	return c.Render(text)
}

func (m *Menu) print(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fmt.Fprint(m.out, text)
}

func (m *Menu) println(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fmt.Fprintln(m.out, text)
}
