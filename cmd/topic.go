package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/etnz/ptfs/docs"
	"github.com/google/subcommands"
)

type topicCmd struct {
	list bool
	html string
}

func (*topicCmd) Name() string     { return "topic" }
func (*topicCmd) Synopsis() string { return "read the ptfs documentation" }
func (*topicCmd) Usage() string {
	return `ptfs topic [-list] [-html <file>] [topic...]

  Displays the documentation of the given topics, the readme by default.
  '*' stands for the readme followed by every topic.

  With -list, prints the name and title of every topic instead.
`
}

func (c *topicCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.list, "list", false, "List the topics.")
	f.StringVar(&c.html, "html", "", "Write the documentation as HTML to this file instead of the terminal.")
}

func (c *topicCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.list {
		listTopics(os.Stdout)
		return subcommands.ExitSuccess
	}
	md, err := topicMarkdown(f.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	if c.html == "" {
		printMarkdown(md)
		return subcommands.ExitSuccess
	}
	if err := writeHTML(c.html, md); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Documentation written to %s\n", c.html)
	return subcommands.ExitSuccess
}

// topicMarkdown returns the documentation of topics, the readme if there are none.
func topicMarkdown(topics []string) (string, error) {
	if len(topics) == 0 {
		topics = []string{"readme"}
	}
	return docs.GetTopics(topics...)
}

// listTopics writes one line per topic: its name and the title of its page.
func listTopics(w io.Writer) {
	for _, topic := range docs.Topics() {
		md, err := docs.GetTopic(topic)
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "%-12s%s\n", topic, title(md))
	}
}

// title returns the first level one heading of md.
func title(md string) string {
	for _, line := range strings.Split(md, "\n") {
		if t, ok := strings.CutPrefix(line, "# "); ok {
			return strings.TrimSpace(t)
		}
	}
	return ""
}
