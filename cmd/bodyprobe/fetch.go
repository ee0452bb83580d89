package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/HRemonen/testresponse"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	cmdFetch := &cobra.Command{
		Use:   "fetch <url>",
		Short: "GETs a URL and reports the decoded views of its body.",
		Args:  cobra.ExactArgs(1),
		RunE:  fetch,
	}
	rootCmd.AddCommand(cmdFetch)
}

func fetch(cmd *cobra.Command, args []string) error {
	client := &http.Client{Timeout: viper.GetDuration("timeout")}

	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, args[0], http.NoBody)
	if err != nil {
		return err
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}

	registry := testresponse.NewDefaultRegistry(testresponse.WithRegistryLogger(log.StandardLogger()))
	if prefer := viper.GetStringSlice("prefer-xml"); len(prefer) > 0 {
		registry.SetPreference(testresponse.KindXML, prefer...)
	}

	res, err := testresponse.FromHTTP(resp, testresponse.WithRegistry(registry))
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}

	report(cmd.OutOrStdout(), res)

	return nil
}

// report writes one line per accessor. Accessors that do not apply to the
// response are listed as "n/a" so the output shape is stable.
func report(w io.Writer, res *testresponse.Response) {
	fmt.Fprintf(w, "status:       %d\n", res.StatusCode)
	fmt.Fprintf(w, "content-type: %s\n", res.ContentType())
	fmt.Fprintf(w, "mimetype:     %s\n", res.Mimetype())
	fmt.Fprintf(w, "xml:          %s\n", summarize(summarizeXML(res)))
	fmt.Fprintf(w, "document:     %s\n", summarize(summarizeDocument(res)))
	fmt.Fprintf(w, "json:         %s\n", summarize(summarizeJSON(res)))
	fmt.Fprintf(w, "robots:       %s\n", summarize(summarizeRobots(res)))
}

func summarize(summary string, err error) string {
	switch {
	case err == nil:
		return summary
	case errors.Is(err, testresponse.ErrNotApplicable):
		return "n/a"
	default:
		return "error: " + err.Error()
	}
}

func summarizeXML(res *testresponse.Response) (string, error) {
	root, err := res.XML()
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("<%s> with %d child elements", root.Tag, len(root.ChildElements())), nil
}

func summarizeDocument(res *testresponse.Response) (string, error) {
	doc, err := res.Document()
	if err != nil {
		return "", err
	}

	links, err := res.Links()
	if err != nil {
		return "", err
	}

	summary := fmt.Sprintf("%d elements, %d links", doc.Find("*").Length(), len(links))
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		summary += fmt.Sprintf(", title %q", title)
	}

	return summary, nil
}

func summarizeJSON(res *testresponse.Response) (string, error) {
	v, err := res.JSON()
	if err != nil {
		return "", err
	}

	switch value := v.(type) {
	case map[string]any:
		return fmt.Sprintf("object with %d keys", len(value)), nil
	case []any:
		return fmt.Sprintf("array of %d items", len(value)), nil
	case nil:
		return "null", nil
	default:
		return fmt.Sprintf("%T %v", value, value), nil
	}
}

func summarizeRobots(res *testresponse.Response) (string, error) {
	robots, err := res.Robots()
	if err != nil {
		return "", err
	}

	if robots.TestAgent("/", "bodyprobe") {
		return "root allowed for bodyprobe", nil
	}

	return "root disallowed for bodyprobe", nil
}
