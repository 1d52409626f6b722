package toggled

import (
	"github.com/statsig-io/ip3country-go/pkg/countrylookup"
	"github.com/ua-parser/uap-go/uaparser"
)

type countryLookup struct {
	table *lazyValue[*countrylookup.CountryLookup]
}

func newCountryLookup(enabled bool, lazyLoad bool) *countryLookup {
	if !enabled {
		return &countryLookup{}
	}
	return &countryLookup{table: loadLazily(countrylookup.New, !lazyLoad)}
}

func (c *countryLookup) ensureLoaded() {
	c.table.wait()
}

func (c *countryLookup) lookupIp(ip string) (string, bool) {
	table, ok := c.table.get()
	if !ok || ip == "" {
		return "", false
	}
	return table.LookupIp(ip)
}

type uaParser struct {
	parser *lazyValue[*uaparser.Parser]
}

func newUAParser(enabled bool, lazyLoad bool) *uaParser {
	if !enabled {
		return &uaParser{}
	}
	return &uaParser{parser: loadLazily(uaparser.NewFromSaved, !lazyLoad)}
}

func (u *uaParser) parse(ua string) *uaparser.Client {
	parser, ok := u.parser.get()
	if !ok || ua == "" {
		return nil
	}
	return parser.Parse(ua)
}

// Adds derived keys to the context sent on the wire. Keys the caller set
// explicitly always win.
type contextEnricher struct {
	country *countryLookup
	ua      *uaParser
}

func newContextEnricher(options ContextEnrichmentOptions) *contextEnricher {
	if !options.Country && !options.UserAgent {
		return nil
	}
	return &contextEnricher{
		country: newCountryLookup(options.Country, options.LazyLoad),
		ua:      newUAParser(options.UserAgent, options.LazyLoad),
	}
}

func (e *contextEnricher) enrich(ctx Context) Context {
	if e == nil {
		return ctx
	}
	enriched := ctx.clone()
	setIfAbsent := func(key string, value string) {
		if _, ok := enriched[key]; !ok && value != "" && value != "Other" {
			enriched[key] = value
		}
	}

	if country, ok := e.country.lookupIp(ctx[ContextRemoteAddress]); ok {
		setIfAbsent(ContextCountry, country)
	}
	if client := e.ua.parse(ctx[ContextUserAgent]); client != nil {
		if client.UserAgent != nil {
			setIfAbsent(ContextBrowserName, client.UserAgent.Family)
		}
		if client.Os != nil {
			setIfAbsent(ContextOSName, client.Os.Family)
		}
		if client.Device != nil {
			setIfAbsent(ContextDeviceName, client.Device.Family)
		}
	}
	return enriched
}
