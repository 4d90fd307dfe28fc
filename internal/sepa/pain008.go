package sepa

import "encoding/xml"

// Namespace of the SEPA core direct debit initiation message.
const Namespace = "urn:iso:std:iso:20022:tech:xsd:pain.008.001.02"

type document struct {
	XMLName xml.Name        `xml:"Document"`
	Xmlns   string          `xml:"xmlns,attr"`
	Initn   customerDDInitn `xml:"CstmrDrctDbtInitn"`
}

type customerDDInitn struct {
	GrpHdr groupHeader   `xml:"GrpHdr"`
	PmtInf []paymentInfo `xml:"PmtInf"`
}

type groupHeader struct {
	MsgID    string    `xml:"MsgId"`
	CreDtTm  string    `xml:"CreDtTm"`
	NbOfTxs  int       `xml:"NbOfTxs"`
	CtrlSum  string    `xml:"CtrlSum"`
	InitgPty partyName `xml:"InitgPty"`
}

type partyName struct {
	Nm string `xml:"Nm"`
}

type paymentInfo struct {
	PmtInfID     string             `xml:"PmtInfId"`
	PmtMtd       string             `xml:"PmtMtd"`
	BtchBookg    bool               `xml:"BtchBookg"`
	NbOfTxs      int                `xml:"NbOfTxs"`
	CtrlSum      string             `xml:"CtrlSum"`
	PmtTpInf     paymentTypeInfo    `xml:"PmtTpInf"`
	ReqdColltnDt string             `xml:"ReqdColltnDt"`
	Cdtr         partyName          `xml:"Cdtr"`
	CdtrAcct     account            `xml:"CdtrAcct"`
	CdtrAgt      agent              `xml:"CdtrAgt"`
	ChrgBr       string             `xml:"ChrgBr"`
	CdtrSchmeID  schemeID           `xml:"CdtrSchmeId"`
	DrctDbtTxInf []directDebitTxInf `xml:"DrctDbtTxInf"`
}

type paymentTypeInfo struct {
	SvcLvl    code   `xml:"SvcLvl"`
	LclInstrm code   `xml:"LclInstrm"`
	SeqTp     string `xml:"SeqTp"`
}

type code struct {
	Cd string `xml:"Cd"`
}

type account struct {
	IBAN string `xml:"Id>IBAN"`
}

type agent struct {
	BIC   string `xml:"FinInstnId>BIC,omitempty"`
	Other string `xml:"FinInstnId>Othr>Id,omitempty"`
}

type schemeID struct {
	ID       string `xml:"Id>PrvtId>Othr>Id"`
	SchemeNm string `xml:"Id>PrvtId>Othr>SchmeNm>Prtry"`
}

type directDebitTxInf struct {
	EndToEndID string         `xml:"PmtId>EndToEndId"`
	InstdAmt   amount         `xml:"InstdAmt"`
	DrctDbtTx  directDebitTx  `xml:"DrctDbtTx"`
	DbtrAgt    agent          `xml:"DbtrAgt"`
	Dbtr       partyName      `xml:"Dbtr"`
	DbtrAcct   account        `xml:"DbtrAcct"`
	RmtInf     remittanceInfo `xml:"RmtInf"`
}

type amount struct {
	Ccy   string `xml:"Ccy,attr"`
	Value string `xml:",chardata"`
}

type directDebitTx struct {
	MndtID    string `xml:"MndtRltdInf>MndtId"`
	DtOfSgntr string `xml:"MndtRltdInf>DtOfSgntr"`
}

type remittanceInfo struct {
	Ustrd string `xml:"Ustrd"`
}
