package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/quillhq/quill/internal/client"
)

var users = []struct {
	name string
	pass string
}{
	{"alice", "wonderland"},
	{"bob", "builder"},
	{"carol", "singer"},
	{"dave", "diver"},
}

var posts = []struct {
	title    string
	content  string
	category string
}{
	{"Getting Started with Flat Files", "Sometimes a JSON file is all the database you need.", "engineering"},
	{"Why I Stopped Chasing Frameworks", "The stack that ships is the stack that wins.", "opinion"},
	{"A Field Guide to API Versioning", "Your v1 clients will outlive your v2 plans. Plan for both.", "engineering"},
	{"Sourdough for Programmers", "Fermentation is just a long-running background job.", "food"},
	{"The Case for Boring Technology", "Every exciting dependency is a pager duty waiting to happen.", "opinion"},
	{"Pagination Is Harder Than It Looks", "Off-by-one errors are the classic, but clamping is the real trap.", "engineering"},
	{"Notes from a Week Offline", "The timeline survived without me. So did I.", "life"},
	{"Rate Limiting Without Redis", "A map and a mutex go further than you think.", "engineering"},
	{"On Writing Short Posts", "If it fits in a title, it should have been a title.", "writing"},
	{"Coffee Shop Review: The Daily Grind", "Good espresso, flaky wifi. Three stars.", "life"},
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "Quill server URL")
	flag.Parse()

	log.Printf("Seeding %s...\n", *baseURL)

	var clients []*client.Client
	for _, u := range users {
		c := client.New(*baseURL)
		if err := c.RegisterAndLogin(u.name, u.pass); err != nil {
			log.Fatalf("register %s: %v", u.name, err)
		}
		log.Printf("✓ Registered user: %s", u.name)
		clients = append(clients, c)
	}

	var postIDs []int
	for _, p := range posts {
		idx := rand.Intn(len(clients))
		c := clients[idx]

		created, err := c.CreatePost(p.title, p.content, p.category)
		if err != nil {
			log.Printf("✗ Failed to create post: %v", err)
			continue
		}
		postIDs = append(postIDs, created.ID)
		log.Printf("✓ Posted #%d: %s (by %s)", created.ID, p.title, users[idx].name)

		// Small delay to spread out date stamps
		time.Sleep(50 * time.Millisecond)
	}

	// Scatter likes so sorting by popularity has something to chew on
	likes := 0
	for _, id := range postIDs {
		n := rand.Intn(8)
		for i := 0; i < n; i++ {
			c := clients[rand.Intn(len(clients))]
			if _, err := c.LikePost(id); err != nil {
				continue
			}
			likes++
		}
	}
	log.Printf("✓ Added %d likes", likes)

	fmt.Println("\n=== Seed Complete ===")
	fmt.Printf("Users: %d\n", len(users))
	fmt.Printf("Posts: %d\n", len(postIDs))
	fmt.Println("\nBrowse at:", *baseURL+"/api/v2/posts")
}
