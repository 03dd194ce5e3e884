package omisecli

import "github.com/omise/omise-go"

// New builds an Omise API client from the configured key pair.
func New(pub, sec string) (*omise.Client, error) {
	c, err := omise.NewClient(pub, sec)
	if err != nil {
		return nil, err
	}
	c.SetDebug(false)
	return c, nil
}
