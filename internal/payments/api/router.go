package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

func SetupRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/payments", h.CreatePayment).Methods("POST")
	r.HandleFunc("/payments/order/{orderId}", func(w http.ResponseWriter, req *http.Request) {
		h.ListPaymentsForOrder(w, req, mux.Vars(req)["orderId"])
	}).Methods("GET")
	return r
}
