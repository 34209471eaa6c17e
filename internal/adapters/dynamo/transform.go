package dynamo

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cinemalab/cinema-data/internal/dataset"
)

// Item is one DynamoDB item before attribute marshalling.
type Item = map[string]any

// TransformMovies keys movies by document id. The first genre becomes the
// GenreIndex key; movies without genres are written without one.
func TransformMovies(rows []dataset.Record) []Item {
	items := make([]Item, 0, len(rows))
	for _, r := range rows {
		id := str(r["_id"])
		if id == "" {
			continue
		}
		it := Item{
			"movie_id":     id,
			"title":        str(r["title"]),
			"description":  str(r["description"]),
			"release_date": str(r["releaseDate"]),
			"duration":     integer(r["duration"]),
			"rating":       float(r["rating"]),
			"poster_url":   str(r["posterUrl"]),
			"trailer_url":  str(r["trailerUrl"]),
			"is_active":    boolean(r["isActive"]),
			"created_at":   str(r["createdAt"]),
			"updated_at":   str(r["updatedAt"]),
		}
		genres := strList(r["genre"])
		if len(genres) > 0 {
			it["genre_id"] = genres[0]
			it["genre_name"] = strings.Join(genres, ", ")
			it["genres"] = genres
		}
		if d := str(r["director"]); d != "" {
			it["director"] = d
		}
		items = append(items, it)
	}
	return items
}

func TransformRooms(rows []dataset.Record) []Item {
	items := make([]Item, 0, len(rows))
	for _, r := range rows {
		it := Item{
			"room_id":    integer(r["id"]),
			"name":       str(r["name"]),
			"capacity":   integer(r["capacity"]),
			"is_active":  boolean(r["is_active"]),
			"created_at": str(r["created_at"]),
			"updated_at": str(r["updated_at"]),
		}
		if st := str(r["screen_type"]); st != "" {
			it["screen_type"] = st
		}
		items = append(items, it)
	}
	return items
}

// TransformUsers splits the stored full name at the first space.
func TransformUsers(rows []dataset.Record) []Item {
	items := make([]Item, 0, len(rows))
	for _, r := range rows {
		first, last, _ := strings.Cut(str(r["name"]), " ")
		it := Item{
			"user_id":    str(r["id"]),
			"first_name": first,
			"last_name":  last,
			"phone":      str(r["phone"]),
			"created_at": str(r["created_at"]),
			"updated_at": str(r["updated_at"]),
		}
		if e := str(r["email"]); e != "" {
			it["email"] = e
		}
		items = append(items, it)
	}
	return items
}

func TransformReservations(rows []dataset.Record) []Item {
	items := make([]Item, 0, len(rows))
	for _, r := range rows {
		it := Item{
			"reservation_id":   str(r["id"]),
			"user_id":          str(r["user_id"]),
			"schedule_id":      integer(r["schedule_id"]),
			"reservation_date": str(r["reservation_date"]),
			"total_amount":     float(r["total_amount"]),
			"status":           str(r["status"]),
		}
		if m := str(r["movie_id"]); m != "" {
			it["movie_id"] = m
		}
		items = append(items, it)
	}
	return items
}

func str(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

func integer(v any) int64 {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case int64:
		return x
	case float64:
		return int64(x)
	case string:
		n, _ := strconv.ParseInt(x, 10, 64)
		return n
	}
	return 0
}

func float(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case float32:
		return float64(x)
	case int:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case string:
		f, _ := strconv.ParseFloat(x, 64)
		return f
	}
	return 0
}

func boolean(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case int64:
		return x != 0
	case int:
		return x != 0
	case string:
		b, _ := strconv.ParseBool(x)
		return b
	}
	return false
}

func strList(v any) []string {
	switch x := v.(type) {
	case []string:
		return x
	case []any:
		out := make([]string, 0, len(x))
		for _, e := range x {
			if s := str(e); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
