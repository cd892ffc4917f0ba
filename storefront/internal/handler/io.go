package handler

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Astemirdum/bookstore-client/storefront/internal/errs"
)

// PasswordReader prompts for a secret on behalf of cmd.
type PasswordReader func(cmd *cobra.Command, prompt string) (string, error)

// pageError is what a page shows the user; the cause stays reachable with
// errors.Is and errors.As.
type pageError struct {
	msg string
	err error
}

func (e *pageError) Error() string { return e.msg }

func (e *pageError) Unwrap() error { return e.err }

// fail renders err for the user. The server's message wins; notFound stands
// in for a bare 404 and fallback for any other failure.
func fail(err error, notFound, fallback string) error {
	var (
		msg   string
		verrs errs.ValidationErrors
	)
	switch {
	case errors.Is(err, errs.ErrUnauthenticated):
		msg = "Please log in first"
	case notFound != "" && errs.IsNotFound(err):
		msg = errs.UserMessage(err, notFound)
	case errors.As(err, &verrs):
		msg = validationText(verrs)
	default:
		msg = errs.UserMessage(err, fallback)
	}
	return &pageError{msg: msg, err: err}
}

// failLogin renders a rejected login or registration, where a 401 means
// wrong credentials rather than a missing session.
func failLogin(err error, fallback string) error {
	var verrs errs.ValidationErrors
	if errors.As(err, &verrs) {
		return &pageError{msg: validationText(verrs), err: err}
	}
	return &pageError{msg: errs.UserMessage(err, fallback), err: err}
}

func validationText(verrs errs.ValidationErrors) string {
	fields := make([]string, 0, len(verrs))
	for f := range verrs {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	lines := make([]string, 0, len(fields))
	for _, f := range fields {
		lines = append(lines, verrs[f])
	}
	return strings.Join(lines, "\n")
}

func terminalPassword(cmd *cobra.Command, prompt string) (string, error) {
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); !ok || f != os.Stdin || !term.IsTerminal(int(syscall.Stdin)) {
		return readLine(in)
	}
	fmt.Fprint(cmd.OutOrStdout(), prompt)
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(cmd.OutOrStdout())
	if err != nil {
		return "", errors.Wrap(err, "read password")
	}
	return strings.TrimSpace(string(bytePassword)), nil
}

// readLine reads up to the next newline without buffering past it, so
// that several prompts can share one reader.
func readLine(r io.Reader) (string, error) {
	var (
		b   strings.Builder
		buf [1]byte
	)
	for {
		n, err := r.Read(buf[:])
		if n > 0 {
			if buf[0] == '\n' {
				return strings.TrimRight(b.String(), "\r"), nil
			}
			b.WriteByte(buf[0])
		}
		if err != nil {
			if errors.Is(err, io.EOF) && b.Len() > 0 {
				return strings.TrimRight(b.String(), "\r"), nil
			}
			return "", err
		}
	}
}

// confirm asks a y/N question unless yes is already set. No answer is a no.
func confirm(cmd *cobra.Command, yes bool, question string) bool {
	if yes {
		return true
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N]: ", question)
	answer, err := readLine(cmd.InOrStdin())
	if err != nil {
		fmt.Fprintln(cmd.OutOrStdout())
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}

func truncateString(s string, maxLength int) string {
	r := []rune(s)
	if len(r) <= maxLength {
		return s
	}
	return string(r[:maxLength-3]) + "..."
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
