package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"golang.org/x/term"

	"github.com/yourlabs/compoctl/internal/models"
	"github.com/yourlabs/compoctl/internal/storage"
)

const timeLayout = "2006-01-02 15:04:05"

func formatSize(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func printSummaries(w io.Writer, summaries []storage.Summary) {
	if len(summaries) == 0 {
		fmt.Fprintln(w, "No archives found")
		return
	}

	fmt.Fprintf(w, "%-30s %-20s %-20s %-10s %-10s %s\n", "PROJECT", "LATEST VERSION", "CREATED", "SIZE", "VERSIONS", "ENCRYPTED")
	fmt.Fprintf(w, "%-30s %-20s %-20s %-10s %-10s %s\n", strings.Repeat("-", 30), strings.Repeat("-", 20), strings.Repeat("-", 20), strings.Repeat("-", 10), strings.Repeat("-", 10), strings.Repeat("-", 9))
	for _, s := range summaries {
		fmt.Fprintf(w, "%-30s %-20s %-20s %-10s %-10d %s\n",
			s.Project, s.Latest.Version, s.Latest.CreatedAt.Local().Format(timeLayout),
			formatSize(s.Latest.Size), s.Versions, yesNo(s.Latest.Encrypted))
	}
}

func printVersions(w io.Writer, versions []models.ArchiveMetadata) {
	fmt.Fprintf(w, "%-20s %-20s %-10s %-10s %s\n", "VERSION", "CREATED", "SIZE", "ENCRYPTED", "IMAGES")
	fmt.Fprintf(w, "%-20s %-20s %-10s %-10s %s\n", strings.Repeat("-", 20), strings.Repeat("-", 20), strings.Repeat("-", 10), strings.Repeat("-", 10), strings.Repeat("-", 20))
	for _, v := range versions {
		fmt.Fprintf(w, "%-20s %-20s %-10s %-10s %d\n",
			v.Version, v.CreatedAt.Local().Format(timeLayout), formatSize(v.Size), yesNo(v.Encrypted), len(v.Images))
	}
}

// confirm asks a yes/no question, anything but y or yes is a no
func confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprint(out, question)
	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		return false
	}
	response := strings.ToLower(strings.TrimSpace(scanner.Text()))
	return response == "y" || response == "yes"
}

// promptPassword reads a password from the terminal without echo
func promptPassword(prompt string, confirmation bool) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("archive password required: set archive.password or COMPOCTL_ARCHIVE_PASSWORD")
	}

	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	if len(password) == 0 {
		return "", errors.New("empty password")
	}

	if confirmation {
		fmt.Fprint(os.Stderr, "Confirm password: ")
		again, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("failed to read password confirmation: %w", err)
		}
		if string(again) != string(password) {
			return "", errors.New("passwords do not match")
		}
	}
	return string(password), nil
}
