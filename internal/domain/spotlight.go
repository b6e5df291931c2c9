package domain

// SpotlightEntry is one highlighted blueprint in the creators footer.
type SpotlightEntry struct {
	ID     int64  `json:"id,omitempty"`
	Title  string `json:"title"`
	Author string `json:"author"`
	Likes  int    `json:"likes,omitempty"`
}

// Spotlight summarizes the community for the panel footer: the most liked
// blueprint, the author with the most listings, and the freshest upload.
type Spotlight struct {
	MostPopular SpotlightEntry `json:"most_popular"`
	TopUploader struct {
		Author string `json:"author"`
		Count  int    `json:"count"`
	} `json:"top_uploader"`
	MostRecent SpotlightEntry `json:"most_recent"`
}

// ComputeSpotlight derives spotlight stats from an in-memory batch. The store
// answers the same question from SQL when the local database is enabled.
func ComputeSpotlight(items []Blueprint, idFallback bool) Spotlight {
	var sp Spotlight
	counts := make(map[string]int)

	for i := range items {
		it := &items[i]
		author := it.Author
		if author == "" {
			author = "unknown"
		}
		counts[author]++

		if sp.MostPopular.ID == 0 || it.Likes > sp.MostPopular.Likes {
			sp.MostPopular = SpotlightEntry{ID: it.ID, Title: it.Title, Author: author, Likes: it.Likes}
		}
		if sp.MostRecent.ID == 0 || it.RecencyKey(idFallback) > recencyOf(items, sp.MostRecent.ID, idFallback) {
			sp.MostRecent = SpotlightEntry{ID: it.ID, Title: it.Title, Author: author, Likes: it.Likes}
		}
		if c := counts[author]; c > sp.TopUploader.Count {
			sp.TopUploader.Author = author
			sp.TopUploader.Count = c
		}
	}
	return sp
}

func recencyOf(items []Blueprint, id int64, idFallback bool) int64 {
	for i := range items {
		if items[i].ID == id {
			return items[i].RecencyKey(idFallback)
		}
	}
	return 0
}
