package provider

import (
	"fmt"
	"strings"
)

// Kind identifies a supported identity provider. The string form is what gets persisted.
type Kind string

const (
	// Google signs in with a Google account.
	Google Kind = "GOOGLE"
	// Facebook signs in with a Facebook account.
	Facebook Kind = "FACEBOOK"
	// LinkedIn signs in with a LinkedIn account.
	LinkedIn Kind = "LINKEDIN"
	// Twitter signs in with a Twitter account.
	Twitter Kind = "TWITTER"
	// WhatsApp signs in with a WhatsApp account.
	WhatsApp Kind = "WHATSAPP"
	// Microsoft signs in with a Microsoft Exchange account.
	Microsoft Kind = "MICROSOFT"
)

var accountTypes = map[Kind]string{
	Google:    "com.google",
	Facebook:  "com.facebook.auth.login",
	LinkedIn:  "com.linkedin.android",
	Twitter:   "com.twitter.android.auth.login",
	WhatsApp:  "com.whatsapp",
	Microsoft: "com.google.android.gm.exchange",
}

// Kinds returns every supported provider in display order.
func Kinds() []Kind {
	return []Kind{Google, Facebook, LinkedIn, Twitter, WhatsApp, Microsoft}
}

// ParseKind maps a provider name to its Kind. Matching ignores case and surrounding space.
func ParseKind(name string) (Kind, error) {
	k := Kind(strings.ToUpper(strings.TrimSpace(name)))
	if _, ok := accountTypes[k]; !ok {
		return "", fmt.Errorf("unknown identity provider %q", name)
	}
	return k, nil
}

// Valid reports whether k is a supported provider.
func (k Kind) Valid() bool {
	_, ok := accountTypes[k]
	return ok
}

// AccountType returns the device account type key associated with the provider.
func (k Kind) AccountType() string {
	return accountTypes[k]
}

func (k Kind) String() string {
	return string(k)
}
