// Package mailer delivers transactional mail off the request path. A
// Dispatcher queues messages for a bounded pool of workers that hand them to
// a Sender. TemplateRenderer renders the HTML bodies.
package mailer
