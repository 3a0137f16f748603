// Package httputil holds the JSON, request parsing and middleware helpers
// used by the introspection API.
//
// Handlers return their failures and let HandlerFunc write them:
//
//	r.Handle("/api/v1/plugins/{id}", httputil.HandlerFunc(func(w http.ResponseWriter, r *http.Request) error {
//		id, err := httputil.PathParam(r, "id")
//		if err != nil {
//			return err
//		}
//		desc, err := pm.Get(module.PluginID(id))
//		if err != nil {
//			return httputil.NotFound(err)
//		}
//		return httputil.WriteJSON(w, http.StatusOK, desc)
//	}))
package httputil
