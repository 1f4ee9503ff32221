package models

import (
	"regexp"

	dErrors "fakturo/pkg/domain-errors"
)

var countryCodePattern = regexp.MustCompile(`^[A-Z]{2}$`)

// Address is a postal address. The country code is ISO 3166-1 alpha-2 and
// mandatory; everything else is free-form.
type Address struct {
	Street         string
	AdditionalLine string
	City           string
	PostalCode     string
	Region         string
	CountryCode    string
}

// NewAddress validates and constructs an address.
func NewAddress(street, city, postalCode, countryCode string) (Address, error) {
	if !countryCodePattern.MatchString(countryCode) {
		return Address{}, dErrors.Newf(dErrors.CodeInvariantViolation,
			"country code %q must be two uppercase letters", countryCode)
	}
	return Address{Street: street, City: city, PostalCode: postalCode, CountryCode: countryCode}, nil
}

var easSchemePattern = regexp.MustCompile(`^[0-9]{4}$`)

// ElectronicAddress is a routing endpoint on an e-invoicing network,
// identified by an EAS scheme code (e.g. "0088" for GLN, "9930" for a
// German VAT number) plus the value in that scheme.
type ElectronicAddress struct {
	Scheme string
	Value  string
}

// NewElectronicAddress validates and constructs an electronic address.
func NewElectronicAddress(scheme, value string) (ElectronicAddress, error) {
	if !easSchemePattern.MatchString(scheme) {
		return ElectronicAddress{}, dErrors.Newf(dErrors.CodeInvariantViolation,
			"electronic address scheme %q must be a four-digit EAS code", scheme)
	}
	if value == "" {
		return ElectronicAddress{}, dErrors.New(dErrors.CodeInvariantViolation, "electronic address value cannot be empty")
	}
	return ElectronicAddress{Scheme: scheme, Value: value}, nil
}

func (a ElectronicAddress) String() string { return a.Scheme + ":" + a.Value }

// NetworkIdentifier names a party's participant ID on a delivery network
// (e.g. network "peppol", participant "0088:7300010000001").
type NetworkIdentifier struct {
	Network       string
	ParticipantID string
}

// NewNetworkIdentifier validates and constructs a network identifier.
func NewNetworkIdentifier(network, participantID string) (NetworkIdentifier, error) {
	if network == "" || participantID == "" {
		return NetworkIdentifier{}, dErrors.New(dErrors.CodeInvariantViolation,
			"network identifier requires both network and participant id")
	}
	return NetworkIdentifier{Network: network, ParticipantID: participantID}, nil
}
