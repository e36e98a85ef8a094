// Command get_token walks through the OAuth consent flow for a Gmail
// connection and prints the tokens to register with POST /api/v1/connections.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"feedback-relay-go/internal/connector/gmail"
)

func main() {
	clientID := os.Getenv("GMAIL_CLIENT_ID")
	clientSecret := os.Getenv("GMAIL_CLIENT_SECRET")

	if clientID == "" || clientSecret == "" {
		log.Fatal("Please set GMAIL_CLIENT_ID and GMAIL_CLIENT_SECRET environment variables")
	}

	redirectURL := os.Getenv("GMAIL_REDIRECT_URL")
	if redirectURL == "" {
		redirectURL = "http://localhost:8080/callback"
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Scopes:       gmail.Scopes,
		Endpoint:     google.Endpoint,
		RedirectURL:  redirectURL,
	}

	// prompt=consent makes Google return a refresh token on every run
	authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
	fmt.Printf("Go to the following link in your browser: %v\n", authURL)
	fmt.Println("\nAfter authorization, you'll be redirected to a URL. Copy the 'code' parameter from that URL.")

	var authCode string
	fmt.Print("\nEnter the authorization code: ")
	fmt.Scan(&authCode)

	tok, err := config.Exchange(context.Background(), authCode)
	if err != nil {
		log.Fatalf("Unable to retrieve token from web: %v", err)
	}

	fmt.Printf("\nRefresh Token: %s\n", tok.RefreshToken)
	fmt.Printf("Access Token: %s\n", tok.AccessToken)
	fmt.Printf("Expiry: %v\n", tok.Expiry)

	fmt.Println("\nRegister the mailbox with:")
	fmt.Printf(`{"channel":"gmail","account_identifier":"<address>","access_token":%q,"refresh_token":%q,"token_expiry":%q}`+"\n",
		tok.AccessToken, tok.RefreshToken, tok.Expiry.Format("2006-01-02T15:04:05Z07:00"))
}
