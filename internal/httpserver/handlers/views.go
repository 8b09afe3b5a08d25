package handlers

import (
	"sort"
	"time"

	"github.com/MrSnakeDoc/localdrop/internal/domain"
	"github.com/MrSnakeDoc/localdrop/internal/uploads"
)

// itemView is the wire shape of a feed item. For file items Content holds
// the storage name, which is also the /uploads/ path.
type itemView struct {
	ID           string `json:"id"`
	Type         string `json:"type"`
	Device       string `json:"device"`
	DeviceID     string `json:"deviceId"`
	DeviceName   string `json:"deviceName"`
	Color        string `json:"color"`
	Timestamp    int64  `json:"timestamp"`
	Content      string `json:"content"`
	OriginalName string `json:"originalName,omitempty"`
	MimeType     string `json:"mimeType,omitempty"`
	Size         int64  `json:"size,omitempty"`
	URL          string `json:"url,omitempty"`
}

func toItemView(item domain.Item) itemView {
	v := itemView{
		ID:         item.ID,
		Type:       string(item.Kind),
		Device:     item.DeviceName,
		DeviceID:   item.DeviceID,
		DeviceName: item.DeviceName,
		Color:      item.Color,
		Timestamp:  item.Timestamp(),
	}
	switch {
	case item.Text != nil:
		v.Content = item.Text.Content
	case item.File != nil:
		v.Content = item.File.StoredName
		v.OriginalName = item.File.OriginalName
		v.MimeType = item.File.MimeType
		v.Size = item.File.Size
		v.URL = "/uploads/" + item.File.StoredName
	}
	return v
}

func toItemViews(items []domain.Item) []itemView {
	out := make([]itemView, 0, len(items))
	for _, item := range items {
		out = append(out, toItemView(item))
	}
	return out
}

type deviceView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Color     string `json:"color"`
	FirstSeen int64  `json:"firstSeen"`
}

func toDeviceView(rec domain.DeviceRecord) deviceView {
	return deviceView{
		ID:        rec.ID,
		Name:      rec.Name,
		Color:     rec.Color,
		FirstSeen: rec.FirstSeen.UnixMilli(),
	}
}

// toDeviceViews orders devices by first contact so the admin list is stable.
func toDeviceViews(recs map[string]domain.DeviceRecord) []deviceView {
	out := make([]deviceView, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toDeviceView(rec))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FirstSeen != out[j].FirstSeen {
			return out[i].FirstSeen < out[j].FirstSeen
		}
		return out[i].ID < out[j].ID
	})
	return out
}

type fileView struct {
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
	URL       string    `json:"url"`
}

func toFileViews(files []uploads.FileInfo) []fileView {
	out := make([]fileView, 0, len(files))
	for _, f := range files {
		out = append(out, fileView{
			Name:      f.Name,
			Size:      f.Size,
			CreatedAt: f.ModTime,
			URL:       "/uploads/" + f.Name,
		})
	}
	return out
}

type storageView struct {
	Total     int64 `json:"total"`
	Used      int64 `json:"used"`
	Available int64 `json:"available"`
}
