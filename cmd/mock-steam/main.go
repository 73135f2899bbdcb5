package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
)

// Local stand-in for the storefront and web API, useful for demos and manual
// testing without burning real requests. Point the importer at it with
//
//	GAMESHELF_STEAM__STORE_URL=http://localhost:9000 \
//	GAMESHELF_STEAM__API_URL=http://localhost:9000
//
// Appid 440 answers with the flat envelope, 620 with the keyed one, anything
// else reports success=false.
func main() {
	addr := flag.String("addr", ":9000", "listen address")
	flag.Parse()

	http.HandleFunc("/api/appdetails", handleAppDetails)
	http.HandleFunc("/appreviews/", handleReviews)
	http.HandleFunc("/IPlayerService/GetOwnedGames/v1/", handleOwnedGames)

	log.Printf("mock storefront listening on %s", *addr)
	log.Fatal(http.ListenAndServe(*addr, nil))
}

var catalog = map[int64]map[string]any{
	440: {
		"name":              "Team Fortress 2",
		"type":              "game",
		"short_description": "Nine distinct classes provide a broad range of tactical abilities.",
		"header_image":      "https://cdn.example/440/header.jpg",
		"developers":        []string{"Valve"},
		"publishers":        []string{"Valve"},
		"release_date":      map[string]any{"coming_soon": false, "date": "Oct 10, 2007"},
		"metacritic":        map[string]any{"score": 92},
		"platforms":         map[string]any{"windows": true, "mac": true, "linux": true},
		"genres":            []map[string]any{{"description": "Action"}, {"description": "Free To Play"}},
		"screenshots": []map[string]any{
			{"id": 0, "path_thumbnail": "https://cdn.example/440/shot0.t.jpg", "path_full": "https://cdn.example/440/shot0.jpg"},
			{"id": 1, "path_thumbnail": "https://cdn.example/440/shot1.t.jpg", "path_full": "https://cdn.example/440/shot1.jpg"},
		},
	},
	620: {
		"name":              "Portal 2",
		"type":              "game",
		"short_description": "The highly anticipated sequel to 2007's Game of the Year.",
		"header_image":      "https://cdn.example/620/header.jpg",
		"developers":        []string{"Valve"},
		"publishers":        []string{"Valve"},
		"release_date":      map[string]any{"coming_soon": false, "date": "Apr 18, 2011"},
		"metacritic":        map[string]any{"score": 95},
		"platforms":         map[string]any{"windows": true, "mac": true, "linux": true},
		"genres":            []map[string]any{{"description": "Action"}, {"description": "Adventure"}},
	},
}

func handleAppDetails(w http.ResponseWriter, r *http.Request) {
	appid, err := strconv.ParseInt(r.URL.Query().Get("appids"), 10, 64)
	if err != nil {
		http.Error(w, "bad appids", http.StatusBadRequest)
		return
	}

	data, ok := catalog[appid]
	if !ok {
		writeJSON(w, map[string]any{strconv.FormatInt(appid, 10): map[string]any{"success": false}})
		return
	}

	// 440 exercises the flat envelope, everything else the keyed one
	if appid == 440 {
		writeJSON(w, map[string]any{"success": true, "data": data})
		return
	}
	writeJSON(w, map[string]any{
		strconv.FormatInt(appid, 10): map[string]any{"success": true, "data": data},
	})
}

func handleReviews(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/appreviews/")
	appid, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		http.Error(w, "bad appid", http.StatusBadRequest)
		return
	}

	if _, ok := catalog[appid]; !ok {
		writeJSON(w, map[string]any{"success": 0})
		return
	}

	writeJSON(w, map[string]any{
		"success": 1,
		"query_summary": map[string]any{
			"review_score_desc": "Overwhelmingly Positive",
			"total_positive":    965000,
			"total_negative":    35000,
			"total_reviews":     1000000,
		},
	})
}

func handleOwnedGames(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("key") == "" || r.URL.Query().Get("steamid") == "" {
		http.Error(w, "missing key or steamid", http.StatusBadRequest)
		return
	}

	games := make([]map[string]any, 0, len(catalog)+1)
	for appid := range catalog {
		games = append(games, map[string]any{"appid": appid, "playtime_forever": 120})
	}
	// an id with no appdetails, so skip handling is observable
	games = append(games, map[string]any{"appid": 999999, "playtime_forever": 5})

	writeJSON(w, map[string]any{
		"response": map[string]any{
			"game_count": len(games),
			"games":      games,
		},
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		fmt.Println("encode:", err)
	}
}
