// Package publish defines the contract with the external publisher. The
// engine hands over final text and links; authentication and session state
// are entirely the publisher's concern.
package publish

import (
	"context"
	"log"
)

// Publisher performs the publish action for final content.
type Publisher interface {
	Publish(ctx context.Context, text string, links []string) error
}

// LogPublisher writes the post to the process log instead of publishing.
// Used by dry runs and as the default when no real publisher is wired.
type LogPublisher struct{}

// Publish implements Publisher.
func (LogPublisher) Publish(_ context.Context, text string, links []string) error {
	log.Printf("[dry-run] would publish: %s", text)
	for _, link := range links {
		log.Printf("[dry-run]   link: %s", link)
	}
	return nil
}
