package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/raragao87/opheliahub/internal/ledger"
	"github.com/raragao87/opheliahub/internal/service/tag"
)

func (s *Server) postTag(w http.ResponseWriter, r *http.Request) {
	var req postTagRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	created, err := s.tagSvc.CreateItem(r.Context(), ledger.Tag{
		OwnerID:  req.UserID,
		Name:     req.Name,
		Color:    req.Color,
		Level:    req.Level,
		ParentID: req.ParentID,
	})
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusCreated, toTagResponse(created))
}

func (s *Server) tagTree(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserID(w, r)
	if !ok {
		return
	}
	roots, err := s.tagSvc.Tree(r.Context(), userID)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toTagNodes(roots))
}

func toTagNodes(nodes []*tag.Node) []tagNodeResponse {
	out := make([]tagNodeResponse, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, tagNodeResponse{
			tagResponse: toTagResponse(n.Tag),
			Children:    toTagNodes(n.Children),
		})
	}
	return out
}

func (s *Server) updateTag(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}
	var req patchTagRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	current, err := s.store.GetTag(r.Context(), req.UserID, id)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	current.ID = id
	current.OwnerID = req.UserID
	current.Name = req.Name
	current.Color = req.Color
	updated, err := s.tagSvc.UpdateItem(r.Context(), current)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toTagResponse(updated))
}

func (s *Server) deleteTag(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserID(w, r)
	if !ok {
		return
	}
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}
	if err := s.tagSvc.DeleteItem(r.Context(), userID, id); err != nil {
		writeDomainErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) moveTag(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}
	var req moveTagRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	moved, err := s.tagSvc.MoveItemLevel(r.Context(), req.UserID, id, req.Level, req.ParentID)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toTagResponse(moved))
}

func (s *Server) bulkUpdateTags(w http.ResponseWriter, r *http.Request) {
	var req bulkUpdateTagsRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	items := make([]ledger.Tag, 0, len(req.Items))
	for _, it := range req.Items {
		current, err := s.store.GetTag(r.Context(), req.UserID, it.ID)
		if err != nil {
			writeDomainErr(w, err)
			return
		}
		current.Name = it.Name
		current.Color = it.Color
		items = append(items, current)
	}
	if err := s.tagSvc.BulkUpdateItems(r.Context(), req.UserID, items); err != nil {
		writeDomainErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
