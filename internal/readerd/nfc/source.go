package nfc

import (
	"bufio"
	"context"
	"encoding/hex"
	"io"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Source adapts the reader device's line protocol into card tags. The
// device prints one UID per line in hex; blank lines and garbage are
// skipped so a flaky serial link never stalls the pipeline.
type Source struct {
	r io.Reader
}

func NewSource(r io.Reader) *Source {
	return &Source{r: r}
}

func (s *Source) Run(ctx context.Context, tags chan<- string) error {
	scanner := bufio.NewScanner(s.r)
	for scanner.Scan() {
		tag := strings.ToUpper(strings.TrimSpace(scanner.Text()))
		if tag == "" {
			continue
		}
		if !validUID(tag) {
			log.Warnf("ignoring malformed uid line: %q", tag)
			continue
		}

		select {
		case tags <- tag:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return scanner.Err()
}

// NFC UIDs are 4, 7 or 10 bytes.
func validUID(tag string) bool {
	if len(tag) != 8 && len(tag) != 14 && len(tag) != 20 {
		return false
	}
	_, err := hex.DecodeString(tag)
	return err == nil
}
