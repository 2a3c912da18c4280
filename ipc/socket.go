package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"sync"

	"kvtube/kvtube-backend/downloader"
)

// IPCHandler exposes the download event stream on a unix socket so local
// clients (CLI, status widgets) can watch progress without polling HTTP.
type IPCHandler struct {
	mu         sync.Mutex
	clients    []net.Conn
	downloader *downloader.Service
	notifier   *downloader.Notifier
	socketPath string
}

func NewIPCHandler(dlSvc *downloader.Service, notifier *downloader.Notifier, socketPath string) *IPCHandler {
	return &IPCHandler{
		clients:    make([]net.Conn, 0),
		downloader: dlSvc,
		notifier:   notifier,
		socketPath: socketPath,
	}
}

func (h *IPCHandler) Init() {
	os.Remove(h.socketPath)

	listener, err := net.Listen("unix", h.socketPath)
	if err != nil {
		panic(err)
	}
	defer listener.Close()

	go h.broadcastEvents()

	for {
		conn, err := listener.Accept()
		if err != nil {
			continue
		}
		fmt.Printf("Client Joined")
		go h.handleClient(conn)
	}
}

func (h *IPCHandler) handleClient(conn net.Conn) {
	defer func() {
		err := conn.Close()
		if err != nil {
			fmt.Printf("[IPC] Failed to close client: %v", err)
		}
		h.removeClient(conn)
	}()

	h.mu.Lock()
	h.clients = append(h.clients, conn)
	h.mu.Unlock()

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		var cmd Command
		if err := json.Unmarshal(scanner.Bytes(), &cmd); err != nil {
			fmt.Printf("[IPC] Failed to parse command: %v", err)
			continue
		}
		h.handleCommands(conn, cmd)
	}
}

func (h *IPCHandler) removeClient(conn net.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, c := range h.clients {
		if c == conn {
			h.clients = append(h.clients[:i], h.clients[i+1:]...)
			break
		}
	}
}

func (h *IPCHandler) handleCommands(conn net.Conn, cmd Command) {
	switch cmd.Type {
	case CmdPause:
		if err := h.downloader.Pause(cmd.DownloadID); err != nil {
			fmt.Printf("[IPC] Pause failed: %v\n", err)
		}
	case CmdResume:
		if err := h.downloader.Resume(cmd.DownloadID); err != nil {
			fmt.Printf("[IPC] Resume failed: %v\n", err)
		}
	case CmdCancel:
		if err := h.downloader.Cancel(cmd.DownloadID); err != nil {
			fmt.Printf("[IPC] Cancel failed: %v\n", err)
		}
	case CmdList:
		data, err := NewMessage(h.downloader.ActiveDownloads(), "downloads")
		if err != nil {
			fmt.Printf("[IPC] Failed to encode downloads: %v\n", err)
			return
		}
		data = append(data, '\n')
		if _, err := conn.Write(data); err != nil {
			fmt.Printf("[IPC] Failed to answer list: %v\n", err)
		}
	}
}

func (h *IPCHandler) broadcastEvents() {
	_, events := h.notifier.Subscribe()
	for ev := range events {
		data, err := NewMessage(ev, "event")
		if err != nil {
			fmt.Printf("[IPC] Failed to encode event. err: %v", err)
			continue
		}

		data = append(data, '\n')
		h.mu.Lock()
		for _, client := range h.clients {
			_, err := client.Write(data)
			if err != nil {
				fmt.Printf("[IPC] Failed to broadcast event. err: %v", err)
				continue
			}
		}
		h.mu.Unlock()
	}
}
