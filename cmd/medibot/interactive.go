package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/siddhikamalkar/AI-Medibot/internal/consult"
)

const followUpCommand = "/followup"

// runREPL reads queries from in and prints the retrieved context for each until
// "exit" or end of input.
func runREPL(ctx context.Context, source consult.ContextSource, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "\nEnter your medical query (or type 'exit' to quit): ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		query := strings.TrimSpace(scanner.Text())
		if strings.EqualFold(query, "exit") {
			return nil
		}
		if query == "" {
			continue
		}
		fmt.Fprintf(out, "\n[Retrieved Context]\n%s\n", source.Context(ctx, query))
	}
}

// runChatLoop holds a consultation in sess, reading patient input from in.
// Plain lines start a consultation; "/followup <q>" asks about the last reply.
func runChatLoop(ctx context.Context, doctor *consult.Doctor, sess *consult.Session, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	var last string
	fmt.Fprintf(out, "Session %s. Describe your symptoms; /followup <question>, /log, /reset, /exit.\n", sess.ID)
	for {
		fmt.Fprint(out, "\n> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "/exit":
			return nil
		case line == "/log":
			fmt.Fprintln(out, sess.Log())
		case line == "/reset":
			if err := doctor.Sessions().Reset(ctx, sess.ID); err != nil {
				fmt.Fprintf(out, "Reset failed: %v\n", err)
				continue
			}
			last = ""
			fmt.Fprintln(out, "Session cleared.")
		case line == followUpCommand || strings.HasPrefix(line, followUpCommand+" "):
			query := strings.TrimSpace(strings.TrimPrefix(line, followUpCommand))
			reply, err := doctor.FollowUp(ctx, sess, last, query)
			if err != nil {
				fmt.Fprintf(out, "Follow-up failed: %v\n", err)
				continue
			}
			last = printReply(out, reply, last)
		default:
			reply, err := doctor.Consult(ctx, sess, consult.Request{Text: line})
			if err != nil {
				fmt.Fprintf(out, "Consultation failed: %v\n", err)
				continue
			}
			last = printReply(out, reply, last)
		}
	}
}

// printReply writes reply and returns the response follow-ups should refer to.
func printReply(out io.Writer, reply *consult.Reply, previous string) string {
	if reply.Notice != "" {
		fmt.Fprintln(out, reply.Notice)
		return previous
	}
	fmt.Fprintf(out, "\nDoctor: %s\n", reply.Text)
	return reply.Text
}
