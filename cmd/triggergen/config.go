package main

type config struct {
	BaseURL  string `mapstructure:"base_url"`
	OAuthID  string `mapstructure:"oauth_id"`
	Card     string `mapstructure:"card"`
	Interval string `mapstructure:"interval"`
}
