package keys

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	logger "github.com/sirupsen/logrus"

	"signalconsumer/src/security"
)

// Keys is an interactive CLI for wrapping API credentials into the
// ENC[...] form consumed by the runtime configuration.
type Keys struct{}

func printUsage() {
	fmt.Println("Available commands:")
	fmt.Println("  help                 Show this help message")
	fmt.Println("  shutdown             Exit the application")
	fmt.Println("  encrypt <value>      Wrap a secret as ENC[...]")
	fmt.Println("  decrypt <value>      Unwrap an ENC[...] secret")
	fmt.Println()
}

func (k *Keys) Start() error {
	config := security.GetConfig()
	if config.MasterKey == "" {
		return fmt.Errorf("SECRETS_MASTER_KEY must be set")
	}

	reader := bufio.NewScanner(os.Stdin)
	reader.Buffer(make([]byte, 0, 1024), 1024*1024)

	for {
		fmt.Print("cmd> ")

		if !reader.Scan() {
			return reader.Err()
		}

		line := strings.TrimSpace(reader.Text())
		if line == "" {
			continue
		}

		parts := strings.SplitN(line, " ", 2)
		cmd := parts[0]

		switch cmd {

		case "shutdown":
			fmt.Println("Exiting CLI...")
			return nil

		case "help":
			printUsage()

		case "encrypt":
			if len(parts) < 2 {
				printUsage()
				continue
			}
			wrapped, err := security.EncryptString(parts[1], config.MasterKey)
			if err != nil {
				logger.WithError(err).Error("Failed to encrypt value")
				continue
			}
			fmt.Println(wrapped)

		case "decrypt":
			if len(parts) < 2 {
				printUsage()
				continue
			}
			plain, err := security.DecryptString(parts[1], config.MasterKey)
			if err != nil {
				logger.WithError(err).Error("Failed to decrypt value")
				continue
			}
			fmt.Println(plain)

		default:
			printUsage()
		}
	}
}
