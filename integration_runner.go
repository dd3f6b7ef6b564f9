package main

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

// Manual end-to-end probe against a running server. Walks a browser-like
// client through the whole flow: health check, register, duplicate
// register, bad login, good login, profile page.

const baseURL = "http://localhost:8080"

func main() {
	fmt.Println("=== LearnPortal Backend Integration Test ===")

	jar, _ := cookiejar.New(nil)
	client := &http.Client{Jar: jar}

	// 1. Health check
	fmt.Println("\n1. Checking health...")
	resp, err := client.Get(baseURL + "/healthz")
	if err != nil {
		log.Fatal("Failed to reach server:", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Fatalf("Health check returned %d (is DB_PASSWORD set?)", resp.StatusCode)
	}
	fmt.Println("✓ Server healthy")

	email := fmt.Sprintf("probe+%d@example.com", randSuffix())

	// 2. Register
	fmt.Println("\n2. Registering...")
	form := url.Values{
		"full_name":        {"Probe User"},
		"email":            {email},
		"phone_number":     {"+1-555-0100"},
		"password":         {"probe-secret"},
		"confirm_password": {"probe-secret"},
	}
	body := mustPost(client, "/register", form)
	if !strings.Contains(body, "Welcome Probe User") {
		log.Fatal("Registration did not land on the content page")
	}
	fmt.Println("✓ Registered and logged in as", email)

	// 3. Duplicate register
	fmt.Println("\n3. Re-registering the same email...")
	mustPost(client, "/logout", nil)
	body = mustPost(client, "/register", form)
	if !strings.Contains(body, "already registered") {
		log.Fatal("Duplicate registration was not rejected")
	}
	fmt.Println("✓ Duplicate rejected inline")

	// 4. Bad login
	fmt.Println("\n4. Logging in with a wrong password...")
	body = mustPost(client, "/login", url.Values{
		"email":    {email},
		"password": {"wrong-secret"},
	})
	if !strings.Contains(body, "Invalid email or password") {
		log.Fatal("Wrong password was accepted")
	}
	fmt.Println("✓ Wrong password rejected")

	// 5. Good login
	fmt.Println("\n5. Logging in...")
	body = mustPost(client, "/login", url.Values{
		"email":    {strings.ToUpper(email)}, // case-insensitive lookup
		"password": {"probe-secret"},
	})
	if !strings.Contains(body, "Welcome Probe User") {
		log.Fatal("Login did not land on the content page")
	}
	fmt.Println("✓ Logged in")

	// 6. Profile refresh
	fmt.Println("\n6. Refreshing profile...")
	resp, err = client.Get(baseURL + "/")
	if err != nil {
		log.Fatal("Failed to fetch profile page:", err)
	}
	page := readBody(resp)
	if !strings.Contains(page, email) || !strings.Contains(page, "Member since") {
		log.Fatal("Profile page missing stored fields")
	}
	fmt.Println("✓ Profile shows stored data")

	fmt.Println("\n=== All checks passed ===")
}

func mustPost(client *http.Client, path string, form url.Values) string {
	resp, err := client.PostForm(baseURL+path, form)
	if err != nil {
		log.Fatalf("POST %s failed: %v", path, err)
	}
	return readBody(resp)
}

func readBody(resp *http.Response) string {
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return string(body)
}

func randSuffix() int64 {
	return time.Now().UnixNano() % 1_000_000
}
