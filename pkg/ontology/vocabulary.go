package ontology

import (
	"strconv"
	"strings"
)

// Namespace is the IRI prefix every SmartCom resource and predicate is minted under.
const Namespace = "http://www.semanticweb.org/asus/ontologies/2025/9/untitled-ontology-10#"

// Standard vocabularies used by generated queries
const (
	RDFNamespace  = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	RDFSNamespace = "http://www.w3.org/2000/01/rdf-schema#"
	XSDNamespace  = "http://www.w3.org/2001/XMLSchema#"
)

// Classes
const (
	ClassProduct     = "Produit"
	ClassClient      = "Client"
	ClassSupplier    = "Fournisseur"
	ClassCart        = "Panier"
	ClassCartItem    = "CartItem"
	ClassOrder       = "Commande"
	ClassOrderLine   = "ArticleCommande"
	ClassSubCategory = "SousCatégorie"
	ClassBrand       = "Marque"
)

// Product and party predicates
const (
	PredSubCategory = "aSousCatégorie"
	PredBrand       = "aProduitMarque"
	PredPrice       = "aPrix"
	PredDescription = "aDescription"
	PredImage       = "aImage"
	PredName        = "aNom"
	PredStock       = "aStockDisponible"
	PredAddress     = "aAdresse"
	PredPhone       = "aTéléphone"
	PredEmail       = "aEmail"
	PredCountry     = "aPays"
	PredAuthor      = "aAuteur"
)

// Cart predicates
const (
	PredInCart          = "inCart"
	PredRefersToProduct = "refersToProduct"
	PredHasQuantity     = "hasQuantity"
	PredContainsProduct = "aContientProduit"
	PredPlacesOrder     = "aPasseCommande"
)

// Order predicates
const (
	PredOrderClient     = "aCommandeClient"
	PredOrderDate       = "aDateCommande"
	PredOrderTotal      = "aMontantTotal"
	PredOrderItemCount  = "aNombreArticles"
	PredOrderStatus     = "aStatutCommande"
	PredShippingAddress = "aAdresseLivraison"
	PredCustomerPhone   = "aTelephoneClient"
	PredCustomerEmail   = "aEmailClient"
	PredCustomerName    = "aNomClient"
	PredLineOrder       = "dansCommande"
	PredLineProduct     = "refereAuProduit"
	PredLineQuantity    = "aQuantiteCommandee"
	PredLineUnitPrice   = "aPrixUnitaire"
	PredLineSubtotal    = "aSousTotal"
)

// Order statuses
const (
	StatusInProgress = "En cours"
	StatusCancelled  = "Annulée"
)

// Prefix is the prefix block shared by every generated query and update.
const Prefix = "PREFIX ns: <" + Namespace + ">\n" +
	"PREFIX rdf: <" + RDFNamespace + ">\n" +
	"PREFIX rdfs: <" + RDFSNamespace + ">\n" +
	"PREFIX xsd: <" + XSDNamespace + ">\n"

// IRI returns the full IRI of a local name in the SmartCom namespace.
func IRI(local string) string {
	return Namespace + local
}

// QName returns the prefixed form ns:local.
func QName(local string) string {
	return "ns:" + local
}

// LocalName strips the SmartCom namespace from an IRI. Foreign IRIs are returned unchanged.
func LocalName(iri string) string {
	return strings.TrimPrefix(iri, Namespace)
}

// CartIRI returns the cart resource owned by a client.
func CartIRI(clientID int) string {
	return IRI("Panier_Client" + strconv.Itoa(clientID))
}

// ClientIRI returns the client resource for a numeric client id.
func ClientIRI(clientID int) string {
	return IRI("Client" + strconv.Itoa(clientID))
}

// OrderIRI returns the order resource for an 8-hex order id.
func OrderIRI(orderID string) string {
	return IRI("Commande_" + orderID)
}
