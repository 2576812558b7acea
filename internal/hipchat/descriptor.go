package hipchat

// CapabilityDocument is the subset of a tenant capability descriptor the
// integration needs: the OAuth token endpoint and the API base URL.
type CapabilityDocument struct {
	Capabilities struct {
		OAuth2Provider struct {
			TokenURL string `json:"tokenUrl"`
		} `json:"oauth2Provider"`
		HipchatAPIProvider struct {
			URL string `json:"url"`
		} `json:"hipchatApiProvider"`
	} `json:"capabilities"`
}

// InstallableDocument is returned by the installable URL during uninstall.
type InstallableDocument struct {
	OAuthID string `json:"oauthId"`
}

// Descriptor is the capability document this integration serves to the
// platform on GET /capabilities.
type Descriptor struct {
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Key          string          `json:"key"`
	Links        DescriptorLinks `json:"links"`
	Capabilities struct {
		HipchatAPIConsumer struct {
			Scopes []string `json:"scopes"`
		} `json:"hipchatApiConsumer"`
		Installable struct {
			AllowGlobal bool   `json:"allowGlobal"`
			AllowRoom   bool   `json:"allowRoom"`
			CallbackURL string `json:"callbackUrl"`
		} `json:"installable"`
		Webhook []WebhookRegistration `json:"webhook"`
	} `json:"capabilities"`
}

type DescriptorLinks struct {
	Self     string `json:"self"`
	Homepage string `json:"homepage"`
}

type WebhookRegistration struct {
	Name    string `json:"name"`
	Event   string `json:"event"`
	Pattern string `json:"pattern"`
	URL     string `json:"url"`
}

// NewDescriptor builds the integration descriptor for the given identity
// and publicly reachable base URL.
func NewDescriptor(key, name, publicURL string) Descriptor {
	d := Descriptor{
		Name:        name,
		Description: "Looks up Magic: The Gathering cards and posts them to the room.",
		Key:         key,
		Links: DescriptorLinks{
			Self:     publicURL + "/capabilities",
			Homepage: publicURL,
		},
	}
	d.Capabilities.HipchatAPIConsumer.Scopes = []string{"send_notification"}
	d.Capabilities.Installable.AllowRoom = true
	d.Capabilities.Installable.CallbackURL = publicURL + "/installed"
	d.Capabilities.Webhook = []WebhookRegistration{
		{
			Name:    "card lookup",
			Event:   "room_message",
			Pattern: "^/[cC][aA][rR][dD]",
			URL:     publicURL + "/card",
		},
	}
	return d
}
