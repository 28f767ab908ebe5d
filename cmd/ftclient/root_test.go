package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestClientConfig(t *testing.T) {
	tests := []struct {
		name       string
		host       string
		serverPort string
		dataPort   string
		wantAddr   string
		wantErr    string
	}{
		{name: "valid", host: "flip1", serverPort: "30020", dataPort: "30021", wantAddr: "flip1:30020"},
		{name: "ipv6 host", host: "::1", serverPort: "30020", dataPort: "30021", wantAddr: "[::1]:30020"},
		{name: "same ports", host: "localhost", serverPort: "30020", dataPort: "30020", wantErr: "must be different"},
		{name: "bad server port", host: "localhost", serverPort: "port", dataPort: "30021", wantErr: "server port"},
		{name: "server port zero", host: "localhost", serverPort: "0", dataPort: "30021", wantErr: "server port"},
		{name: "data port too high", host: "localhost", serverPort: "30020", dataPort: "65536", wantErr: "data port"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := clientConfig(tc.host, tc.serverPort, tc.dataPort)
			if tc.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("clientConfig err = %v, want containing %q", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("clientConfig: %v", err)
			}
			if cfg.ServerAddr != tc.wantAddr {
				t.Fatalf("ServerAddr = %q, want %q", cfg.ServerAddr, tc.wantAddr)
			}
		})
	}
}

func TestCheckOverwrite(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(existing, []byte("x"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if err := checkOverwrite(filepath.Join(dir, "new.txt"), false); err != nil {
		t.Fatalf("new file: %v", err)
	}
	if err := checkOverwrite(existing, false); err == nil {
		t.Fatal("existing file accepted without force")
	}
	if err := checkOverwrite(existing, true); err != nil {
		t.Fatalf("existing file with force: %v", err)
	}
	if err := checkOverwrite(dir, true); err == nil {
		t.Fatal("directory accepted as overwrite target")
	}
}

func TestPrintListing(t *testing.T) {
	var sb strings.Builder
	printListing(&sb, "flip1:30020", []string{"a.txt", "b.txt"})
	want := "Receiving directory structure from flip1:30020\na.txt\nb.txt\n"
	if sb.String() != want {
		t.Fatalf("printListing = %q, want %q", sb.String(), want)
	}
}
