package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bnema/waypoint/internal/domain/entity"
	urlutil "github.com/bnema/waypoint/internal/domain/url"
)

var (
	cookiesValues bool
	cookiesDomain string
)

var cookiesCmd = &cobra.Command{
	Use:   "cookies",
	Short: "List the persisted cookie jar",
	Long: `List the cookies persisted from the primary surface, grouped by domain.
Values are hidden unless --values is given.`,
	RunE: runCookies,
}

func init() {
	rootCmd.AddCommand(cookiesCmd)
	cookiesCmd.Flags().BoolVar(&cookiesValues, "values", false, "show cookie values")
	cookiesCmd.Flags().StringVar(&cookiesDomain, "domain", "", "only list cookies for this domain or url")
}

func runCookies(cmd *cobra.Command, _ []string) error {
	a, err := requireApp()
	if err != nil {
		return err
	}

	jar, err := a.Cookies.Load(a.Ctx())
	if err != nil {
		return fmt.Errorf("load cookie jar: %w", err)
	}
	if cookiesDomain != "" {
		jar = filterJar(jar, cookiesDomain)
	}

	fmt.Fprintln(cmd.OutOrStdout(), a.Renderer.RenderCookies(jar, cookiesValues))
	return nil
}

// filterJar keeps the records whose domain matches filter, which may be a
// bare domain or a url. A leading dot on the stored domain is ignored.
func filterJar(jar entity.CookieJar, filter string) entity.CookieJar {
	want := urlutil.ExtractDomain(urlutil.Normalize(filter))
	if want == "" {
		want = filter
	}
	out := entity.CookieJar{}
	for _, rec := range jar.Flatten() {
		domain := urlutil.ExtractDomain("https://" + strings.TrimPrefix(rec.Domain, "."))
		if domain == want {
			out.Put(rec)
		}
	}
	return out
}
