package routes

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gorilla/websocket"

	"boutique/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Adjust this for production
	},
}

// Connected clients map with mutex for thread safety
var feedClients = make(map[*websocket.Conn]bool)
var orderFeed = make(chan []byte, 100) // Buffered channel to prevent blocking
var feedMutex = &sync.Mutex{}

func orderFeedHandler() fiber.Handler {
	return adaptor.HTTPHandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("Error upgrading:", err)
			return
		}
		defer conn.Close()

		feedMutex.Lock()
		feedClients[conn] = true
		feedMutex.Unlock()
		log.Println("Order feed client connected:", conn.RemoteAddr())

		// The feed is one-way; reading only to detect disconnects.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("WebSocket read error: %v", err)
				}
				feedMutex.Lock()
				delete(feedClients, conn)
				feedMutex.Unlock()
				log.Println("Order feed client disconnected:", conn.RemoteAddr())
				break
			}
		}
	})
}

func broadcastOrders() {
	for message := range orderFeed {
		feedMutex.Lock()
		for client := range feedClients {
			if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("WebSocket write error: %v", err)
				client.Close()
				delete(feedClients, client)
			}
		}
		feedMutex.Unlock()
	}
}

// publishOrder pushes an order-created event onto the feed without ever
// blocking the request that created the order.
func publishOrder(order *models.Order, source string) {
	payload, err := json.Marshal(fiber.Map{
		"order_number": order.OrderNumber,
		"grand_total":  order.GrandTotal,
		"date":         order.Date,
		"source":       source,
	})
	if err != nil {
		log.Printf("Failed to encode order feed event: %v", err)
		return
	}
	select {
	case orderFeed <- payload:
	default:
	}
}
