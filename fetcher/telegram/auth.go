package telegram

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tg"
)

// ErrNoTerminal is returned when a sign-in step needs input but stdin is not a terminal.
var ErrNoTerminal = errors.New("telegram sign-in needs an interactive terminal; run once in a terminal to create the session")

// TerminalUserAuthenticator implements auth.UserAuthenticator prompting the terminal for input.
type TerminalUserAuthenticator struct {
	PhoneNumber string
}

func stdinIsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

func readLine(prompt string) (string, error) {
	if !stdinIsTerminal() {
		return "", ErrNoTerminal
	}
	fmt.Fprint(os.Stderr, prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (TerminalUserAuthenticator) SignUp(ctx context.Context) (auth.UserInfo, error) {
	return auth.UserInfo{}, errors.New("signing up is not supported, register the account in an official client first")
}

func (TerminalUserAuthenticator) AcceptTermsOfService(ctx context.Context, tos tg.HelpTermsOfService) error {
	return &auth.SignUpRequired{TermsOfService: tos}
}

func (TerminalUserAuthenticator) Code(ctx context.Context, sentCode *tg.AuthSentCode) (string, error) {
	return readLine("Enter the code Telegram sent you: ")
}

func (a TerminalUserAuthenticator) Phone(_ context.Context) (string, error) {
	if a.PhoneNumber != "" {
		return a.PhoneNumber, nil
	}
	return readLine("Enter phone in international format (e.g. +1234567890): ")
}

func (TerminalUserAuthenticator) Password(_ context.Context) (string, error) {
	if !stdinIsTerminal() {
		return "", ErrNoTerminal
	}
	fmt.Fprint(os.Stderr, "Enter 2FA password: ")
	pwd, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(pwd)), nil
}
